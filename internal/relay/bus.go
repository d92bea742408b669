package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// busEnvelope wraps a fan-out event with its source instance and connection
// ids so a subscriber never duplicates its own local fan-out or echoes
// traffic back at the sender.
type busEnvelope struct {
	Instance string `json:"instance"`
	Origin   string `json:"origin"`
	Room     string `json:"room"`
	Event    *Event `json:"event"`
}

// RedisBus fans room traffic out across server instances over redis pub/sub.
// Each delta or cursor event is published on its room's channel; every
// instance subscribed to room:* delivers remote events to its local members.
type RedisBus struct {
	rdb      *redis.Client
	instance string
	log      *slog.Logger
}

func NewRedisBus(rdb *redis.Client, log *slog.Logger) *RedisBus {
	return &RedisBus{
		rdb:      rdb,
		instance: uuid.New().String(),
		log:      log,
	}
}

// Publish sends one fan-out event to the room's redis channel
func (b *RedisBus) Publish(ctx context.Context, origin string, e *Event) error {
	raw, err := json.Marshal(busEnvelope{
		Instance: b.instance,
		Origin:   origin,
		Room:     e.Room,
		Event:    e,
	})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, roomChannel(e.Room), raw).Err()
}

// Run subscribes to all room channels and forwards remote events into the
// engine until ctx is cancelled. Messages this instance published are
// skipped: their members already got the event through local fan-out.
func (b *RedisBus) Run(ctx context.Context, engine *Engine) {
	pubsub := b.rdb.PSubscribe(ctx, roomChannel("*"))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env busEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("relay.bus.decode", "error", err)
				continue
			}
			if env.Instance == b.instance || env.Room == "" || env.Event == nil {
				continue
			}
			engine.DeliverRemote(env.Origin, env.Event)
		}
	}
}

func roomChannel(roomID string) string {
	return "room:" + roomID
}
