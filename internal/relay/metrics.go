package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_relay_connections",
		Help: "Number of live websocket connections.",
	})

	metricRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_relay_rooms",
		Help: "Number of active document rooms.",
	})

	metricDeltas = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_relay_deltas_total",
		Help: "Document deltas relayed.",
	})

	metricCursorMoves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_relay_cursor_moves_total",
		Help: "Cursor updates relayed.",
	})

	metricDroppedSends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_relay_dropped_sends_total",
		Help: "Fan-out deliveries skipped because the receiver could not accept them.",
	})

	metricRejectedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_relay_rejected_events_total",
		Help: "Inbound events rejected as malformed or unauthorized.",
	})
)
