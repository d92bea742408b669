package handlers

import (
	"log/slog"
	"strconv"

	"collab-service/internal/relay"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	engine   *relay.Engine
	upgrader *websocket.Upgrader
	log      *slog.Logger
}

func NewWSHandler(engine *relay.Engine, upgrader *websocket.Upgrader, log *slog.Logger) *WSHandler {
	return &WSHandler{
		engine:   engine,
		upgrader: upgrader,
		log:      log,
	}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Establish the realtime collaboration stream. Authenticate with ?token= since browsers cannot set headers on upgrades.
// @Tags websocket
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	userID := strconv.FormatUint(uint64(c.GetUint("user_id")), 10)
	relay.ServeWS(h.engine, h.upgrader, h.log, c.Writer, c.Request, userID)
}
