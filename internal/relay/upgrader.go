package relay

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// NewUpgrader builds a websocket upgrader that only accepts handshakes from
// the configured origins. Localhost variants are always accepted so local
// development works without extra configuration.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return false
			}
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
		},
	}
}
