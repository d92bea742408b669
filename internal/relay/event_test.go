package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDecodePreservesOpaquePayload(t *testing.T) {
	raw := `{"type":"send-changes","room":"doc-42","delta":{"ops":[{"insert":"hello","attributes":{"bold":true}}]}}`

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))

	assert.Equal(t, EventSendDelta, ev.Type)
	assert.Equal(t, "doc-42", ev.Room)
	// the delta travels through untouched, whatever its shape
	assert.JSONEq(t, `{"ops":[{"insert":"hello","attributes":{"bold":true}}]}`, string(ev.Delta))
	require.NoError(t, ev.Validate())
}

func TestEventValidate(t *testing.T) {
	cases := []struct {
		name  string
		event Event
		ok    bool
	}{
		{"join", Event{Type: EventJoinRoom, Room: "doc-1"}, true},
		{"join without room", Event{Type: EventJoinRoom}, false},
		{"delta", Event{Type: EventSendDelta, Room: "doc-1", Delta: json.RawMessage(`{}`)}, true},
		{"delta without payload", Event{Type: EventSendDelta, Room: "doc-1"}, false},
		{"delta without room", Event{Type: EventSendDelta, Delta: json.RawMessage(`{}`)}, false},
		{"cursor", Event{Type: EventSendCursor, Room: "doc-1", CursorID: "c1", Range: json.RawMessage(`{}`)}, true},
		{"cursor without id", Event{Type: EventSendCursor, Room: "doc-1", Range: json.RawMessage(`{}`)}, false},
		{"cursor without range", Event{Type: EventSendCursor, Room: "doc-1", CursorID: "c1"}, false},
		{"outbound type from client", Event{Type: EventReceiveDelta, Room: "doc-1", Delta: json.RawMessage(`{}`)}, false},
		{"unknown type", Event{Type: "presence-ping", Room: "doc-1"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.event.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestErrorEventShape(t *testing.T) {
	ev := NewErrorEvent("ev-1", CodeNotInRoom, "join the room before sending to it")

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "error", decoded["type"])
	assert.Equal(t, CodeNotInRoom, decoded["code"])
	assert.NotContains(t, decoded, "delta", "empty payload fields stay off the wire")
}
