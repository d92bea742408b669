package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSender collects delivered events in memory so the engine can be tested
// without real sockets.
type fakeSender struct {
	mu     sync.Mutex
	events []*Event
	fail   error
}

func (s *fakeSender) Send(e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.events = append(s.events, e)
	return nil
}

func (s *fakeSender) Events() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Event, len(s.events))
	copy(out, s.events)
	return out
}

// eventsOfType filters out join acks and errors so tests can look at fan-out
// traffic only
func (s *fakeSender) eventsOfType(t EventType) []*Event {
	var out []*Event
	for _, e := range s.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestEngine() (*Engine, *Registry, *Directory) {
	rooms := NewDirectory()
	registry := NewRegistry(rooms)
	return NewEngine(registry, rooms, nil, nil), registry, rooms
}

func joinEvent(room string) *Event {
	return &Event{Type: EventJoinRoom, Room: room}
}

func deltaEvent(room string, delta string) *Event {
	return &Event{Type: EventSendDelta, Room: room, Delta: json.RawMessage(delta)}
}

func cursorEvent(room, cursorID string, rng string) *Event {
	return &Event{Type: EventSendCursor, Room: room, CursorID: cursorID, Range: json.RawMessage(rng)}
}

func TestDeltaFanOutExcludesSender(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	sa, sb, sc := &fakeSender{}, &fakeSender{}, &fakeSender{}
	a := engine.Attach("user-a", sa)
	b := engine.Attach("user-b", sb)
	c := engine.Attach("user-c", sc)

	engine.HandleEvent(ctx, a, joinEvent("doc-42"))
	engine.HandleEvent(ctx, b, joinEvent("doc-42"))
	engine.HandleEvent(ctx, c, joinEvent("doc-42"))

	engine.HandleEvent(ctx, a, deltaEvent("doc-42", `{"op":"insert","text":"hi"}`))

	for _, s := range []*fakeSender{sb, sc} {
		got := s.eventsOfType(EventReceiveDelta)
		require.Len(t, got, 1)
		assert.Equal(t, "doc-42", got[0].Room)
		assert.JSONEq(t, `{"op":"insert","text":"hi"}`, string(got[0].Delta))
		assert.Equal(t, "user-a", got[0].UserID)
	}

	assert.Empty(t, sa.eventsOfType(EventReceiveDelta), "sender must not receive its own delta")
}

func TestDeltaOrderingPerSource(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	sa, sb := &fakeSender{}, &fakeSender{}
	a := engine.Attach("user-a", sa)
	b := engine.Attach("user-b", sb)

	engine.HandleEvent(ctx, a, joinEvent("doc-1"))
	engine.HandleEvent(ctx, b, joinEvent("doc-1"))

	engine.HandleEvent(ctx, a, deltaEvent("doc-1", `{"seq":1}`))
	engine.HandleEvent(ctx, a, deltaEvent("doc-1", `{"seq":2}`))

	got := sb.eventsOfType(EventReceiveDelta)
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"seq":1}`, string(got[0].Delta))
	assert.JSONEq(t, `{"seq":2}`, string(got[1].Delta))
}

func TestJoinAcknowledged(t *testing.T) {
	engine, _, _ := newTestEngine()

	sa := &fakeSender{}
	a := engine.Attach("user-a", sa)
	engine.HandleEvent(context.Background(), a, joinEvent("doc-1"))

	acks := sa.eventsOfType(EventRoomJoined)
	require.Len(t, acks, 1)
	assert.Equal(t, "doc-1", acks[0].Room)
}

func TestSendWithoutJoinRejected(t *testing.T) {
	engine, _, rooms := newTestEngine()
	ctx := context.Background()

	sa, sb := &fakeSender{}, &fakeSender{}
	a := engine.Attach("user-a", sa)
	b := engine.Attach("user-b", sb)
	engine.HandleEvent(ctx, b, joinEvent("doc-1"))

	// a never joined doc-1
	engine.HandleEvent(ctx, a, deltaEvent("doc-1", `{"op":"x"}`))

	assert.Empty(t, sb.eventsOfType(EventReceiveDelta), "unjoined sender must not reach the room")
	errs := sa.eventsOfType(EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, CodeNotInRoom, errs[0].Code)

	// after joining, the same send is accepted
	engine.HandleEvent(ctx, a, joinEvent("doc-1"))
	engine.HandleEvent(ctx, a, deltaEvent("doc-1", `{"op":"x"}`))
	assert.Len(t, sb.eventsOfType(EventReceiveDelta), 1)
	assert.True(t, rooms.Exists("doc-1"))
}

func TestRejoinMovesConnectionBetweenRooms(t *testing.T) {
	engine, _, rooms := newTestEngine()
	ctx := context.Background()

	sa, sb := &fakeSender{}, &fakeSender{}
	a := engine.Attach("user-a", sa)
	b := engine.Attach("user-b", sb)

	engine.HandleEvent(ctx, a, joinEvent("doc-1"))
	engine.HandleEvent(ctx, b, joinEvent("doc-1"))
	engine.HandleEvent(ctx, a, joinEvent("doc-2"))

	assert.Equal(t, "doc-2", a.Room())
	require.Len(t, rooms.Members("doc-1"), 1, "a must be gone from doc-1")
	assert.Equal(t, b.ID(), rooms.Members("doc-1")[0].ID())

	// traffic into the old room no longer reaches a, and a can no longer send there
	engine.HandleEvent(ctx, b, deltaEvent("doc-1", `{"op":"y"}`))
	assert.Empty(t, sa.eventsOfType(EventReceiveDelta))

	engine.HandleEvent(ctx, a, deltaEvent("doc-1", `{"op":"z"}`))
	require.NotEmpty(t, sa.eventsOfType(EventError))
}

func TestCursorFanOutAndCrossRoomIsolation(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	sa, sb, sc := &fakeSender{}, &fakeSender{}, &fakeSender{}
	a := engine.Attach("user-a", sa)
	b := engine.Attach("user-b", sb)
	c := engine.Attach("user-c", sc)

	engine.HandleEvent(ctx, a, joinEvent("doc-x"))
	engine.HandleEvent(ctx, b, joinEvent("doc-x"))
	engine.HandleEvent(ctx, c, joinEvent("doc-y"))

	engine.HandleEvent(ctx, a, cursorEvent("doc-x", "cursor-7", `{"index":3,"length":0}`))

	got := sb.eventsOfType(EventReceiveCursor)
	require.Len(t, got, 1)
	assert.Equal(t, "cursor-7", got[0].CursorID)
	assert.JSONEq(t, `{"index":3,"length":0}`, string(got[0].Range))

	assert.Empty(t, sa.eventsOfType(EventReceiveCursor), "sender excluded")
	assert.Empty(t, sc.eventsOfType(EventReceiveCursor), "members of another room must see nothing")
	assert.Empty(t, sc.eventsOfType(EventReceiveDelta))
}

func TestDisconnectCleansUpRoom(t *testing.T) {
	engine, registry, rooms := newTestEngine()
	ctx := context.Background()

	sa := &fakeSender{}
	a := engine.Attach("user-a", sa)
	engine.HandleEvent(ctx, a, joinEvent("doc-1"))
	require.True(t, rooms.Exists("doc-1"))

	engine.Detach(a)

	assert.False(t, rooms.Exists("doc-1"), "last leave must delete the room, not leave it empty")
	assert.Empty(t, rooms.Members("doc-1"))
	_, ok := registry.Lookup(a.ID())
	assert.False(t, ok)

	// a fresh join by someone else creates a brand new room
	sc := &fakeSender{}
	c := engine.Attach("user-c", sc)
	engine.HandleEvent(ctx, c, joinEvent("doc-1"))
	require.Len(t, rooms.Members("doc-1"), 1)
	assert.Equal(t, c.ID(), rooms.Members("doc-1")[0].ID())
}

func TestDetachIdempotent(t *testing.T) {
	engine, registry, _ := newTestEngine()

	a := engine.Attach("user-a", &fakeSender{})
	engine.Detach(a)
	engine.Detach(a) // racing disconnect notifications must be safe

	assert.Equal(t, 0, registry.Len())
}

func TestSlowConsumerSkippedNotFatal(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	sa, sb := &fakeSender{}, &fakeSender{}
	stuck := &fakeSender{fail: ErrSlowConsumer}

	a := engine.Attach("user-a", sa)
	b := engine.Attach("user-b", sb)
	s := engine.Attach("user-s", stuck)

	engine.HandleEvent(ctx, a, joinEvent("doc-1"))
	engine.HandleEvent(ctx, b, joinEvent("doc-1"))
	engine.HandleEvent(ctx, s, joinEvent("doc-1"))

	engine.HandleEvent(ctx, a, deltaEvent("doc-1", `{"op":"q"}`))

	// delivery to the healthy member proceeds and the sender sees no error
	assert.Len(t, sb.eventsOfType(EventReceiveDelta), 1)
	assert.Empty(t, sa.eventsOfType(EventError))
}

func TestMalformedEventOnlyAnswersSender(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	sa, sb := &fakeSender{}, &fakeSender{}
	a := engine.Attach("user-a", sa)
	b := engine.Attach("user-b", sb)

	engine.HandleEvent(ctx, a, joinEvent("doc-1"))
	engine.HandleEvent(ctx, b, joinEvent("doc-1"))

	// missing room identifier
	engine.HandleEvent(ctx, a, &Event{Type: EventSendDelta, Delta: json.RawMessage(`{}`)})
	// missing delta payload
	engine.HandleEvent(ctx, a, &Event{Type: EventSendDelta, Room: "doc-1"})
	// outbound-only type echoed back by a confused client
	engine.HandleEvent(ctx, a, &Event{Type: EventReceiveDelta, Room: "doc-1", Delta: json.RawMessage(`{}`)})

	errs := sa.eventsOfType(EventError)
	assert.Len(t, errs, 3)
	for _, e := range errs {
		assert.Equal(t, CodeInvalidEvent, e.Code)
	}
	assert.Empty(t, sb.eventsOfType(EventReceiveDelta), "malformed events never disturb the room")
}

func TestDeliverRemoteExcludesOrigin(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	sa, sb := &fakeSender{}, &fakeSender{}
	a := engine.Attach("user-a", sa)
	b := engine.Attach("user-b", sb)
	engine.HandleEvent(ctx, a, joinEvent("doc-1"))
	engine.HandleEvent(ctx, b, joinEvent("doc-1"))

	remote := NewDeltaEvent("ev-1", "doc-1", "user-r", json.RawMessage(`{"op":"r"}`))
	engine.DeliverRemote(a.ID(), remote)

	assert.Empty(t, sa.eventsOfType(EventReceiveDelta))
	require.Len(t, sb.eventsOfType(EventReceiveDelta), 1)
}

func TestConcurrentSourcesAllDelivered(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	observer := &fakeSender{}
	o := engine.Attach("observer", observer)
	engine.HandleEvent(ctx, o, joinEvent("doc-1"))

	const sources = 8
	const perSource = 25

	var wg sync.WaitGroup
	for i := 0; i < sources; i++ {
		s := &fakeSender{}
		conn := engine.Attach("writer", s)
		engine.HandleEvent(ctx, conn, joinEvent("doc-1"))

		wg.Add(1)
		go func(conn *Connection) {
			defer wg.Done()
			for j := 0; j < perSource; j++ {
				engine.HandleEvent(ctx, conn, deltaEvent("doc-1", `{"op":"c"}`))
			}
		}(conn)
	}
	wg.Wait()

	// every member sees sources*perSource deltas minus its own; the observer
	// sent none, so it sees all of them
	assert.Len(t, observer.eventsOfType(EventReceiveDelta), sources*perSource)
}
