package relay

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinCreatesRoomLazily(t *testing.T) {
	rooms := NewDirectory()
	registry := NewRegistry(rooms)

	assert.False(t, rooms.Exists("doc-1"))
	assert.Empty(t, rooms.Members("doc-1"), "absent room yields an empty snapshot, not an error")

	a := registry.Register("user-a", &fakeSender{})
	rooms.Join("doc-1", a)

	assert.True(t, rooms.Exists("doc-1"))
	require.Len(t, rooms.Members("doc-1"), 1)
	assert.Equal(t, "doc-1", a.Room())
}

func TestJoinSameRoomIdempotent(t *testing.T) {
	rooms := NewDirectory()
	a := NewRegistry(rooms).Register("user-a", &fakeSender{})

	rooms.Join("doc-1", a)
	rooms.Join("doc-1", a)

	assert.Len(t, rooms.Members("doc-1"), 1)
	assert.Equal(t, 1, rooms.RoomCount())
}

func TestJoinOtherRoomLeavesPrevious(t *testing.T) {
	rooms := NewDirectory()
	registry := NewRegistry(rooms)
	a := registry.Register("user-a", &fakeSender{})
	b := registry.Register("user-b", &fakeSender{})

	rooms.Join("doc-1", a)
	rooms.Join("doc-1", b)
	rooms.Join("doc-2", a)

	assert.Equal(t, "doc-2", a.Room())
	require.Len(t, rooms.Members("doc-1"), 1)
	assert.Equal(t, b.ID(), rooms.Members("doc-1")[0].ID())
	require.Len(t, rooms.Members("doc-2"), 1)
}

func TestLastLeaveDeletesRoom(t *testing.T) {
	rooms := NewDirectory()
	registry := NewRegistry(rooms)
	a := registry.Register("user-a", &fakeSender{})
	b := registry.Register("user-b", &fakeSender{})

	rooms.Join("doc-1", a)
	rooms.Join("doc-1", b)

	rooms.Leave("doc-1", a)
	assert.True(t, rooms.Exists("doc-1"))
	assert.Equal(t, "", a.Room())

	rooms.Leave("doc-1", b)
	assert.False(t, rooms.Exists("doc-1"), "empty room must not linger")
	assert.Equal(t, 0, rooms.RoomCount())
}

func TestLeaveNonMemberIsNoop(t *testing.T) {
	rooms := NewDirectory()
	registry := NewRegistry(rooms)
	a := registry.Register("user-a", &fakeSender{})
	b := registry.Register("user-b", &fakeSender{})

	rooms.Join("doc-1", a)
	rooms.Leave("doc-1", b)
	rooms.Leave("doc-9", a)

	assert.Len(t, rooms.Members("doc-1"), 1)
	assert.Equal(t, "doc-1", a.Room())
}

func TestMembersSnapshotIsDetached(t *testing.T) {
	rooms := NewDirectory()
	registry := NewRegistry(rooms)
	a := registry.Register("user-a", &fakeSender{})

	rooms.Join("doc-1", a)
	snapshot := rooms.Members("doc-1")
	rooms.Leave("doc-1", a)

	// the earlier snapshot is unaffected by the mutation
	assert.Len(t, snapshot, 1)
	assert.Empty(t, rooms.Members("doc-1"))
}

func TestConcurrentJoinLeaveKeepsCountsConsistent(t *testing.T) {
	rooms := NewDirectory()
	registry := NewRegistry(rooms)

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		conn := registry.Register(fmt.Sprintf("user-%d", i), &fakeSender{})
		wg.Add(1)
		go func(conn *Connection) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				rooms.Join("doc-1", conn)
				rooms.Join("doc-2", conn)
				rooms.Leave("doc-2", conn)
			}
		}(conn)
	}
	wg.Wait()

	// every worker's final state is "left doc-2 after joining it"; no room may
	// hold a stale membership and no empty room may survive
	total := len(rooms.Members("doc-1")) + len(rooms.Members("doc-2"))
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, rooms.RoomCount())
}
