package relay

import "sync"

// Directory maps a room identifier to its current member connections. Rooms
// are created lazily on first join and deleted when the last member leaves;
// an empty room never persists.
//
// Join, Leave and the delete-if-empty step run as one atomic unit under a
// single mutex, so two racing leaves cannot both observe a non-empty room
// and strand an empty entry.
type Directory struct {
	mu    sync.Mutex
	rooms map[string]map[string]*Connection // roomID -> connID -> conn
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]map[string]*Connection)}
}

// Join adds conn to roomID, creating the room if absent. A connection belongs
// to at most one room: joining while a member of a different room leaves that
// room first. Joining the current room again is a no-op.
func (d *Directory) Join(roomID string, conn *Connection) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := conn.Room()
	if prev == roomID {
		return
	}
	if prev != "" {
		d.removeLocked(prev, conn)
	}

	members := d.rooms[roomID]
	if members == nil {
		members = make(map[string]*Connection)
		d.rooms[roomID] = members
		metricRooms.Inc()
	}
	members[conn.ID()] = conn
	conn.setRoom(roomID)
}

// Leave removes conn from roomID and deletes the room if it became empty.
// Not being a member is a no-op, not an error.
func (d *Directory) Leave(roomID string, conn *Connection) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.removeLocked(roomID, conn)
	if conn.Room() == roomID {
		conn.setRoom("")
	}
}

func (d *Directory) removeLocked(roomID string, conn *Connection) {
	members, ok := d.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := members[conn.ID()]; !ok {
		return
	}
	delete(members, conn.ID())
	if len(members) == 0 {
		delete(d.rooms, roomID)
		metricRooms.Dec()
	}
}

// Members returns a snapshot of the room's member connections for fan-out.
// An absent room yields an empty slice.
func (d *Directory) Members(roomID string) []*Connection {
	d.mu.Lock()
	defer d.mu.Unlock()

	members := d.rooms[roomID]
	out := make([]*Connection, 0, len(members))
	for _, conn := range members {
		out = append(out, conn)
	}
	return out
}

// Exists reports whether the room currently has any members
func (d *Directory) Exists(roomID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.rooms[roomID]
	return ok
}

// RoomCount returns the number of active rooms
func (d *Directory) RoomCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}
