package relay

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Bus propagates fan-out traffic to other server instances. Publish must not
// block relay processing; implementations queue or drop under pressure.
type Bus interface {
	Publish(ctx context.Context, origin string, e *Event) error
}

// Presence is notified when a user's first session connects and last session
// disconnects. Calls are best effort; failures never affect relay state.
type Presence interface {
	Connected(ctx context.Context, userID string)
	Disconnected(ctx context.Context, userID string)
}

// Engine is the relay's event state machine. Per connection the states are
// unjoined -> joined(room) -> joined(other room) | unjoined, driven by the
// typed inbound events of that connection's transport.
//
// Ordering: each connection delivers its events to HandleEvent from a single
// ordered inbound path (its read pump), and fan-out pushes into each
// receiver's ordered send queue. Two deltas from the same source therefore
// reach every member in source order. No ordering holds across sources.
type Engine struct {
	registry *Registry
	rooms    *Directory
	bus      Bus      // nil when running single-instance
	presence Presence // nil when presence tracking is off
	log      *slog.Logger
}

func NewEngine(registry *Registry, rooms *Directory, bus Bus, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		registry: registry,
		rooms:    rooms,
		bus:      bus,
		log:      log,
	}
}

// SetPresence installs the presence hook. Must be called before serving.
func (e *Engine) SetPresence(p Presence) {
	e.presence = p
}

// Attach registers a new transport-level connection with the engine
func (e *Engine) Attach(userID string, sender Sender) *Connection {
	first := e.registry.UserSessions(userID) == 0
	conn := e.registry.Register(userID, sender)
	e.log.Info("relay.connection.open", "connID", conn.ID(), "userID", userID)

	if e.presence != nil && first {
		e.presence.Connected(context.Background(), userID)
	}
	return conn
}

// Detach tears down a connection: unregisters it and leaves its room.
// Idempotent, safe against racing disconnect notifications.
func (e *Engine) Detach(conn *Connection) {
	room := conn.Room()
	e.registry.Unregister(conn.ID())
	e.log.Info("relay.connection.close", "connID", conn.ID(), "userID", conn.UserID(), "room", room)

	if e.presence != nil && e.registry.UserSessions(conn.UserID()) == 0 {
		e.presence.Disconnected(context.Background(), conn.UserID())
	}
}

// HandleEvent processes one inbound event from conn. A malformed or
// unauthorized event is answered with a best-effort error event to the sender
// and never disturbs other members.
func (e *Engine) HandleEvent(ctx context.Context, conn *Connection, ev *Event) {
	if err := ev.Validate(); err != nil {
		metricRejectedEvents.Inc()
		e.log.Warn("relay.event.invalid", "connID", conn.ID(), "type", ev.Type, "error", err)
		e.reply(conn, NewErrorEvent(ev.ID, CodeInvalidEvent, err.Error()))
		return
	}

	switch ev.Type {
	case EventJoinRoom:
		e.handleJoin(conn, ev)
	case EventSendDelta:
		e.handleDelta(ctx, conn, ev)
	case EventSendCursor:
		e.handleCursor(ctx, conn, ev)
	}
}

func (e *Engine) handleJoin(conn *Connection, ev *Event) {
	e.rooms.Join(ev.Room, conn)
	e.log.Debug("relay.room.join", "connID", conn.ID(), "room", ev.Room)
	e.reply(conn, NewRoomJoinedEvent(ev.ID, ev.Room))
}

func (e *Engine) handleDelta(ctx context.Context, conn *Connection, ev *Event) {
	if !e.memberOf(conn, ev) {
		return
	}

	metricDeltas.Inc()
	out := NewDeltaEvent(eventID(ev), ev.Room, conn.UserID(), ev.Delta)
	e.fanout(ev.Room, conn.ID(), out)

	if e.bus != nil {
		if err := e.bus.Publish(ctx, conn.ID(), out); err != nil {
			e.log.Warn("relay.bus.publish", "room", ev.Room, "error", err)
		}
	}
}

func (e *Engine) handleCursor(ctx context.Context, conn *Connection, ev *Event) {
	if !e.memberOf(conn, ev) {
		return
	}

	metricCursorMoves.Inc()
	out := NewCursorEvent(eventID(ev), ev.Room, ev.CursorID, ev.Range)
	e.fanout(ev.Room, conn.ID(), out)

	if e.bus != nil {
		if err := e.bus.Publish(ctx, conn.ID(), out); err != nil {
			e.log.Warn("relay.bus.publish", "room", ev.Room, "error", err)
		}
	}
}

// memberOf enforces join-before-send: a connection may only broadcast into
// the room it currently belongs to.
func (e *Engine) memberOf(conn *Connection, ev *Event) bool {
	if conn.Room() == ev.Room {
		return true
	}
	metricRejectedEvents.Inc()
	e.log.Warn("relay.event.not_in_room", "connID", conn.ID(), "room", ev.Room, "joined", conn.Room())
	e.reply(conn, NewErrorEvent(ev.ID, CodeNotInRoom, "join the room before sending to it"))
	return false
}

// DeliverRemote fans out an event received from another instance via the bus.
// origin is the connection id on the remote instance; it is excluded in case
// the id is somehow local.
func (e *Engine) DeliverRemote(origin string, ev *Event) {
	e.fanout(ev.Room, origin, ev)
}

// fanout delivers ev to every member of roomID except origin. A member whose
// transport cannot accept the event is skipped for this message only; the
// failure never aborts delivery to the rest of the room and never reaches
// the sender.
func (e *Engine) fanout(roomID, origin string, ev *Event) {
	for _, member := range e.rooms.Members(roomID) {
		if member.ID() == origin {
			continue
		}
		if err := member.Send(ev); err != nil {
			metricDroppedSends.Inc()
			e.log.Debug("relay.fanout.drop", "room", roomID, "connID", member.ID(), "error", err)
		}
	}
}

// reply sends a control event back to the originating connection, best effort
func (e *Engine) reply(conn *Connection, ev *Event) {
	if err := conn.Send(ev); err != nil {
		e.log.Debug("relay.reply.drop", "connID", conn.ID(), "error", err)
	}
}

func eventID(ev *Event) string {
	if ev.ID != "" {
		return ev.ID
	}
	return uuid.New().String()
}
