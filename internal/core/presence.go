package core

import "sync"

// Presence is the single source of truth for which connections are in which
// rooms and which identity each connection carries. All operations are safe
// under concurrent invocation from independent connections; the lock is held
// for map mutation only, never across I/O.
//
// Presence is tracked per connection, not per user: one user may hold several
// simultaneous connections, so user-facing reads deduplicate by identity at
// read time.
type Presence struct {
	mu     sync.RWMutex
	rooms  map[int64]map[string]struct{}
	idents map[string]Identity
}

// NewPresence constructs an empty registry.
func NewPresence() *Presence {
	return &Presence{
		rooms:  make(map[int64]map[string]struct{}),
		idents: make(map[string]Identity),
	}
}

// Register records the authenticated identity of a connection. It must be
// called before any Join for that connection.
func (p *Presence) Register(connID string, identity Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idents[connID] = identity
}

// IdentityOf returns the identity of a registered connection.
func (p *Presence) IdentityOf(connID string) (Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	identity, ok := p.idents[connID]
	return identity, ok
}

// Join adds the connection to a room. Idempotent. Returns false when the
// connection is not registered — notably after RemoveConnection has run, so a
// racing join can never resurrect a torn-down connection.
func (p *Presence) Join(roomID int64, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.idents[connID]; !ok {
		return false
	}
	members, ok := p.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		p.rooms[roomID] = members
	}
	members[connID] = struct{}{}
	return true
}

// Leave removes the connection from a room. Leaving a room not joined is a
// no-op, not an error.
func (p *Presence) Leave(roomID int64, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeFromRoom(roomID, connID)
}

// Connections returns the raw fan-out target set for a room.
func (p *Presence) Connections(roomID int64) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	members := p.rooms[roomID]
	conns := make([]string, 0, len(members))
	for connID := range members {
		conns = append(conns, connID)
	}
	return conns
}

// Members returns the distinct identities present in a room. A user connected
// from two sessions counts once.
func (p *Presence) Members(roomID int64) []Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[int64]struct{})
	identities := make([]Identity, 0, len(p.rooms[roomID]))
	for connID := range p.rooms[roomID] {
		identity, ok := p.idents[connID]
		if !ok {
			continue
		}
		if _, dup := seen[identity.UserID]; dup {
			continue
		}
		seen[identity.UserID] = struct{}{}
		identities = append(identities, identity)
	}
	return identities
}

// ConnectionsOfUsers returns every registered connection whose identity
// matches one of the given user IDs, wherever it is (or isn't) joined.
func (p *Presence) ConnectionsOfUsers(userIDs ...int64) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	wanted := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}

	var conns []string
	for connID, identity := range p.idents {
		if _, ok := wanted[identity.UserID]; ok {
			conns = append(conns, connID)
		}
	}
	return conns
}

// RemoveConnection removes the connection from every room and drops its
// identity mapping, in one critical section. Returns the rooms the connection
// had joined so the caller can broadcast updated presence. After this returns
// the connection can never re-enter a room.
func (p *Presence) RemoveConnection(connID string) []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	left := []int64{}
	for roomID, members := range p.rooms {
		if _, ok := members[connID]; ok {
			p.removeFromRoom(roomID, connID)
			left = append(left, roomID)
		}
	}
	delete(p.idents, connID)
	return left
}

// removeFromRoom deletes a membership and drops the room entry once empty.
// Callers must hold the write lock.
func (p *Presence) removeFromRoom(roomID int64, connID string) {
	members, ok := p.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(p.rooms, roomID)
	}
}
