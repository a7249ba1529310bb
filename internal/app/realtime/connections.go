package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"messenger/internal/pkg/logx"
)

// Conn is one live client connection as seen by the registries.
// Send and Evict must never block and must never call back into a registry.
type Conn interface {
	ID() string
	// Send enqueues evt; false means the connection is closed or its queue is full.
	Send(evt *Event) bool
	// Evict ends the connection from the server side.
	Evict(reason string)
}

// Connections tracks open connections and their ad-hoc room memberships.
type Connections struct {
	mu sync.RWMutex

	conns map[string]Conn

	// room id -> conn id -> conn
	rooms map[string]map[string]Conn

	// conn id -> rooms joined, for cleanup
	joined map[string]map[string]struct{}

	logger zerolog.Logger
}

func NewConnections() *Connections {
	return &Connections{
		conns:  make(map[string]Conn),
		rooms:  make(map[string]map[string]Conn),
		joined: make(map[string]map[string]struct{}),
		logger: logx.Component("connections"),
	}
}

// Add records c as open.
func (cs *Connections) Add(c Conn) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.conns[c.ID()] = c
}

// Remove forgets c and drops it from every room it joined.
// It reports whether c was known.
func (cs *Connections) Remove(c Conn) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	id := c.ID()
	if _, ok := cs.conns[id]; !ok {
		return false
	}
	delete(cs.conns, id)

	for room := range cs.joined[id] {
		members := cs.rooms[room]
		delete(members, id)
		if len(members) == 0 {
			delete(cs.rooms, room)
		}
	}
	delete(cs.joined, id)

	return true
}

// Get returns the open connection with the given id.
func (cs *Connections) Get(id string) (Conn, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	c, ok := cs.conns[id]
	return c, ok
}

// Join adds the connection to room. Joining twice is a no-op.
// It returns false if the connection is not open.
func (cs *Connections) Join(connID, room string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	c, ok := cs.conns[connID]
	if !ok {
		return false
	}

	members, ok := cs.rooms[room]
	if !ok {
		members = make(map[string]Conn)
		cs.rooms[room] = members
	}
	members[connID] = c

	rooms, ok := cs.joined[connID]
	if !ok {
		rooms = make(map[string]struct{})
		cs.joined[connID] = rooms
	}
	rooms[room] = struct{}{}

	return true
}

// IsMember reports whether the connection joined room.
func (cs *Connections) IsMember(connID, room string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	_, ok := cs.rooms[room][connID]
	return ok
}

// RoomSize returns the number of connections in room.
func (cs *Connections) RoomSize(room string) int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return len(cs.rooms[room])
}

// Count returns the number of open connections.
func (cs *Connections) Count() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return len(cs.conns)
}

// ToRoom sends evt to every member of room except exceptID and returns the number of
// connections that accepted it.
func (cs *Connections) ToRoom(room string, evt *Event, exceptID string) int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	sent := 0
	for id, c := range cs.rooms[room] {
		if id == exceptID {
			continue
		}
		if c.Send(evt) {
			sent++
		}
	}
	return sent
}

// ToAll sends evt to every open connection.
func (cs *Connections) ToAll(evt *Event) int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	sent := 0
	for _, c := range cs.conns {
		if c.Send(evt) {
			sent++
		}
	}
	return sent
}

// ToConn sends evt to a single connection by id.
func (cs *Connections) ToConn(id string, evt *Event) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	c, ok := cs.conns[id]
	if !ok {
		cs.logger.Debug().Str("conn_id", id).Str("event", string(evt.Kind)).Msg("Target connection not found, dropping event")
		return false
	}
	return c.Send(evt)
}

// EvictAll evicts every open connection.
func (cs *Connections) EvictAll(reason string) int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	for _, c := range cs.conns {
		c.Evict(reason)
	}
	return len(cs.conns)
}
