package relay

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrClientDisconnected = errors.New("client disconnected")
	ErrSlowConsumer       = errors.New("send buffer full")
)

// Sender is the outbound capability for one connection. Implementations must
// not block: a receiver that cannot accept the event right now returns
// ErrSlowConsumer and the event is dropped for that receiver only.
type Sender interface {
	Send(e *Event) error
}

// Connection represents one live client session. The room field is mutated
// only by the Directory under its mutex so that registry and directory can
// never disagree about membership.
type Connection struct {
	id     string
	userID string
	sender Sender

	mu   sync.RWMutex
	room string // empty while unjoined
}

func (c *Connection) ID() string     { return c.id }
func (c *Connection) UserID() string { return c.userID }

// Room returns the currently joined room identifier, or "" while unjoined
func (c *Connection) Room() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room
}

func (c *Connection) setRoom(room string) {
	c.mu.Lock()
	c.room = room
	c.mu.Unlock()
}

// Send pushes one event at this connection
func (c *Connection) Send(e *Event) error {
	return c.sender.Send(e)
}

// Registry tracks every live connection in the process. Unregister cascades
// to the Room Directory so a destroyed connection never lingers in a room.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	rooms *Directory
}

func NewRegistry(rooms *Directory) *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
		rooms: rooms,
	}
}

// Register creates a Connection for a new transport-level session
func (r *Registry) Register(userID string, sender Sender) *Connection {
	conn := &Connection{
		id:     uuid.New().String(),
		userID: userID,
		sender: sender,
	}

	r.mu.Lock()
	r.conns[conn.id] = conn
	r.mu.Unlock()

	metricConnections.Inc()
	return conn
}

// Unregister removes a connection and leaves its room. Idempotent: racing
// disconnect notifications are safe.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	metricConnections.Dec()
	if room := conn.Room(); room != "" {
		r.rooms.Leave(room, conn)
	}
}

// Lookup resolves a connection identifier to its current state
func (r *Registry) Lookup(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// Len returns the number of live connections
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// UserSessions counts the live connections belonging to one user
func (r *Registry) UserSessions(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, conn := range r.conns {
		if conn.userID == userID {
			n++
		}
	}
	return n
}
