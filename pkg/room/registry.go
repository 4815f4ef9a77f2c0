// Package room maps chats to the connections currently subscribed to them.
// Rooms are transient fan-out groups: created on first join, pruned when the
// last member leaves, rebuilt from nothing after a restart.
package room

import (
	"fmt"
	"sync"
)

// Conn is one physical client connection. Deliver must not block; it reports
// false when the connection can no longer accept writes, at which point the
// caller should drop it from every room.
type Conn interface {
	Username() string
	Deliver(payload []byte) bool
}

type room struct {
	mu      sync.RWMutex
	members map[Conn]struct{}
}

// Registry is the shared room table. The registry mutex guards the maps and
// room creation; membership of each room is guarded by that room's own mutex,
// so broadcast traffic in one chat never serializes against another.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	conns map[Conn]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
		conns: make(map[Conn]map[string]struct{}),
	}
}

// Join subscribes conn to key. Joining twice is a no-op. The registry mutex
// is held across the membership write: releasing it between the room lookup
// and the insert would let a concurrent prune drop the room and strand the
// joiner in a table no broadcast can reach.
func (r *Registry) Join(key string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[key]
	if !ok {
		rm = &room{members: make(map[Conn]struct{})}
		r.rooms[key] = rm
	}
	if r.conns[conn] == nil {
		r.conns[conn] = make(map[string]struct{})
	}
	r.conns[conn][key] = struct{}{}

	rm.mu.Lock()
	rm.members[conn] = struct{}{}
	rm.mu.Unlock()
}

// Leave removes conn from a single room. Unknown keys and non-members are
// no-ops.
func (r *Registry) Leave(key string, conn Conn) {
	r.mu.Lock()
	rm, ok := r.rooms[key]
	if keys := r.conns[conn]; keys != nil {
		delete(keys, key)
		if len(keys) == 0 {
			delete(r.conns, conn)
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	delete(rm.members, conn)
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if empty {
		r.prune(key)
	}
}

// LeaveAll removes conn from every room it joined. Called on disconnect;
// never errors, even for connections that never joined anything.
func (r *Registry) LeaveAll(conn Conn) {
	r.mu.Lock()
	keys := r.conns[conn]
	delete(r.conns, conn)
	rooms := make(map[string]*room, len(keys))
	for key := range keys {
		if rm, ok := r.rooms[key]; ok {
			rooms[key] = rm
		}
	}
	r.mu.Unlock()

	for key, rm := range rooms {
		rm.mu.Lock()
		delete(rm.members, conn)
		empty := len(rm.members) == 0
		rm.mu.Unlock()
		if empty {
			r.prune(key)
		}
	}
}

// prune drops the room if it is still empty. Re-checked under both locks
// because a join may have raced in.
func (r *Registry) prune(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[key]
	if !ok {
		return
	}
	rm.mu.RLock()
	empty := len(rm.members) == 0
	rm.mu.RUnlock()
	if empty {
		delete(r.rooms, key)
	}
}

// Members returns a snapshot of the connections subscribed to key at call
// time.
func (r *Registry) Members(key string) []Conn {
	r.mu.RLock()
	rm, ok := r.rooms[key]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()
	members := make([]Conn, 0, len(rm.members))
	for conn := range rm.members {
		members = append(members, conn)
	}
	return members
}

// HasOtherMember reports whether key has at least one connection belonging to
// a user other than username. Used to scope presence events.
func (r *Registry) HasOtherMember(key, username string) bool {
	for _, conn := range r.Members(key) {
		if conn.Username() != username {
			return true
		}
	}
	return false
}

// ChatKey is the canonical room key for a chat.
func ChatKey(chatID int64) string {
	return fmt.Sprintf("chat_%d", chatID)
}

// DirectKey is the legacy room key for one-off direct rooms, derived from the
// sorted username pair so both sides compute the same key.
func DirectKey(u1, u2 string) string {
	if u1 > u2 {
		u1, u2 = u2, u1
	}
	return fmt.Sprintf("dm:%s:%s", u1, u2)
}
