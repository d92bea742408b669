package relay

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies a relay event on the wire using a custom enum type for type safety
type EventType string

const (
	// Inbound events from the editor client
	EventJoinRoom   EventType = "create-room" // historical wire name kept for client compatibility
	EventSendDelta  EventType = "send-changes"
	EventSendCursor EventType = "send-cursor-move"

	// Outbound events to room members
	EventReceiveDelta  EventType = "receive-changes"
	EventReceiveCursor EventType = "receive-cursor-move"
	EventRoomJoined    EventType = "room-joined"
	EventError         EventType = "error"
)

// String returns the string representation of the EventType
func (t EventType) String() string {
	return string(t)
}

// IsInbound reports whether the event type may be sent by a client
func (t EventType) IsInbound() bool {
	switch t {
	case EventJoinRoom, EventSendDelta, EventSendCursor:
		return true
	default:
		return false
	}
}

// Error codes delivered to the sender on rejected events
const (
	CodeInvalidEvent = "INVALID_EVENT"
	CodeNotInRoom    = "NOT_IN_ROOM"
)

// Event is the envelope exchanged with editor clients. Delta and Range are
// opaque editor payloads; the relay forwards them unmodified and never
// inspects their contents.
type Event struct {
	ID        string          `json:"id,omitempty"`
	Type      EventType       `json:"type"`
	Room      string          `json:"room,omitempty"`
	Delta     json.RawMessage `json:"delta,omitempty"`
	Range     json.RawMessage `json:"range,omitempty"`
	CursorID  string          `json:"cursorId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Code      string          `json:"code,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Validate checks the structural requirements of an inbound event
func (e *Event) Validate() error {
	if !e.Type.IsInbound() {
		return fmt.Errorf("unsupported event type: %q", e.Type)
	}
	if e.Room == "" {
		return fmt.Errorf("room identifier is required for %s", e.Type)
	}
	switch e.Type {
	case EventSendDelta:
		if len(e.Delta) == 0 {
			return fmt.Errorf("delta payload is required for %s", e.Type)
		}
	case EventSendCursor:
		if len(e.Range) == 0 {
			return fmt.Errorf("range payload is required for %s", e.Type)
		}
		if e.CursorID == "" {
			return fmt.Errorf("cursor identifier is required for %s", e.Type)
		}
	}
	return nil
}

// Event constructors for outbound traffic

// NewDeltaEvent builds the fan-out copy of a delta, tagged with its room
func NewDeltaEvent(id, room, userID string, delta json.RawMessage) *Event {
	return &Event{
		ID:        id,
		Type:      EventReceiveDelta,
		Room:      room,
		Delta:     delta,
		UserID:    userID,
		Timestamp: time.Now().Unix(),
	}
}

// NewCursorEvent builds the fan-out copy of a cursor move
func NewCursorEvent(id, room, cursorID string, rng json.RawMessage) *Event {
	return &Event{
		ID:        id,
		Type:      EventReceiveCursor,
		Room:      room,
		Range:     rng,
		CursorID:  cursorID,
		Timestamp: time.Now().Unix(),
	}
}

// NewRoomJoinedEvent acknowledges a successful join
func NewRoomJoinedEvent(id, room string) *Event {
	return &Event{
		ID:        id,
		Type:      EventRoomJoined,
		Room:      room,
		Timestamp: time.Now().Unix(),
	}
}

// NewErrorEvent reports a rejected event back to its sender
func NewErrorEvent(id, code, reason string) *Event {
	return &Event{
		ID:        id,
		Type:      EventError,
		Code:      code,
		Reason:    reason,
		Timestamp: time.Now().Unix(),
	}
}
