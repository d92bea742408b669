package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAssignsUniqueIDs(t *testing.T) {
	rooms := NewDirectory()
	registry := NewRegistry(rooms)

	a := registry.Register("user-a", &fakeSender{})
	b := registry.Register("user-a", &fakeSender{})

	assert.NotEqual(t, a.ID(), b.ID(), "two sessions of the same user are distinct connections")
	assert.Equal(t, 2, registry.Len())

	got, ok := registry.Lookup(a.ID())
	require.True(t, ok)
	assert.Equal(t, "user-a", got.UserID())
	assert.Equal(t, "", got.Room(), "a fresh connection starts unjoined")
}

func TestUnregisterIdempotent(t *testing.T) {
	rooms := NewDirectory()
	registry := NewRegistry(rooms)

	a := registry.Register("user-a", &fakeSender{})
	registry.Unregister(a.ID())
	registry.Unregister(a.ID())
	registry.Unregister("not-a-connection")

	assert.Equal(t, 0, registry.Len())
	_, ok := registry.Lookup(a.ID())
	assert.False(t, ok)
}

func TestUnregisterCascadesToRoomLeave(t *testing.T) {
	rooms := NewDirectory()
	registry := NewRegistry(rooms)

	a := registry.Register("user-a", &fakeSender{})
	rooms.Join("doc-1", a)
	require.True(t, rooms.Exists("doc-1"))

	registry.Unregister(a.ID())

	assert.False(t, rooms.Exists("doc-1"))
	assert.Equal(t, "", a.Room())
}
