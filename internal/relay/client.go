package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; deltas can carry embedded
	// content so this is far above a chat-sized frame
	maxMessageSize = 256 * 1024

	// Outbound queue depth per connection
	sendQueueSize = 256
)

// Client terminates the websocket wire protocol for one browser session and
// feeds typed events into the Engine. It implements Sender for fan-out: Send
// never blocks, a full queue drops the event for this client only.
type Client struct {
	conn   *websocket.Conn
	engine *Engine
	send   chan []byte
	log    *slog.Logger

	connection *Connection

	ctx    context.Context
	cancel context.CancelFunc
	closed int32
}

func newClient(engine *Engine, conn *websocket.Conn, log *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:   conn,
		engine: engine,
		send:   make(chan []byte, sendQueueSize),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Send queues one outbound event. Called concurrently by fan-out from other
// connections' read pumps.
func (c *Client) Send(e *Event) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrClientDisconnected
	default:
		// Receiver is not keeping up: skip this message, keep the connection.
		// The wire-level ping/pong will reap it if it is actually gone.
		return ErrSlowConsumer
	}
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.close()
		c.engine.Detach(c.connection)
		if err := c.conn.Close(); err != nil {
			c.log.Debug("relay.conn.close", "connID", c.connection.ID(), "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Error("relay.read", "connID", c.connection.ID(), "error", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.log.Warn("relay.decode", "connID", c.connection.ID(), "error", err)
			c.Send(NewErrorEvent("", CodeInvalidEvent, "malformed event payload"))
			continue
		}

		ev.UserID = c.connection.UserID()
		ev.Timestamp = time.Now().Unix()
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}

		c.engine.HandleEvent(c.ctx, c.connection, &ev)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)

			// Drain whatever else is already queued into this frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// ServeWS upgrades an HTTP request and runs the connection until it drops.
// Application-level room re-join after a reconnect is the client's job; the
// server holds no room state across connections.
func ServeWS(engine *Engine, upgrader *websocket.Upgrader, log *slog.Logger, w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("relay.upgrade", "userID", userID, "error", err)
		return
	}

	client := newClient(engine, conn, log)
	client.connection = engine.Attach(userID, client)

	go client.writePump()
	go client.readPump()
}
