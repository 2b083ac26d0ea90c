package realtime

import "sync"

// room is one conversation's live subscriber set. Its mutex serializes
// membership changes and broadcasts for that conversation only.
type room struct {
	mu      sync.Mutex
	members map[string]struct{}
}

// RoomManager maintains conversation-scoped subscriber sets and routes
// broadcasts to them. Lock order is always manager then room; the manager
// lock is never held across a broadcast.
type RoomManager struct {
	registry *Registry

	mu    sync.RWMutex
	rooms map[string]*room
}

// NewRoomManager creates a room manager backed by the given registry.
func NewRoomManager(registry *Registry) *RoomManager {
	return &RoomManager{
		registry: registry,
		rooms:    make(map[string]*room),
	}
}

// Join subscribes a connection to a conversation, creating the room lazily.
// The manager lock is held across the member add: a concurrent Leave or
// LeaveAll that empties the room deletes it from the map, and releasing the
// lock between lookup and insert would let the add land on that orphaned
// room. Membership validation is the caller's responsibility.
func (m *RoomManager) Join(conversationID, connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.rooms[conversationID]
	if !ok {
		rm = &room{members: make(map[string]struct{})}
		m.rooms[conversationID] = rm
	}

	rm.mu.Lock()
	rm.members[connID] = struct{}{}
	rm.mu.Unlock()
}

// Leave unsubscribes a connection from a conversation. The room entry is
// deleted when its subscriber set empties. Unknown rooms or non-subscribers
// are a no-op.
func (m *RoomManager) Leave(conversationID, connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.rooms[conversationID]
	if !ok {
		return
	}

	rm.mu.Lock()
	delete(rm.members, connID)
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if empty {
		delete(m.rooms, conversationID)
	}
}

// LeaveAll removes a connection from every room it subscribes to. The manager
// lock is held throughout so a connection mid-disconnect cannot remain
// half-subscribed relative to concurrent joins.
func (m *RoomManager) LeaveAll(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for conversationID, rm := range m.rooms {
		rm.mu.Lock()
		delete(rm.members, connID)
		empty := len(rm.members) == 0
		rm.mu.Unlock()

		if empty {
			delete(m.rooms, conversationID)
		}
	}
}

// Broadcast delivers an event to every subscriber of a conversation except,
// optionally, one connection. Enqueuing happens under the room lock so
// consecutive broadcasts to one room reach every subscriber's queue in call
// order; senders are non-blocking, so no network I/O happens under the lock
// and one full or dead subscriber never delays the rest.
func (m *RoomManager) Broadcast(conversationID string, event Event, excludeConnID string) {
	m.mu.RLock()
	rm, ok := m.rooms[conversationID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	for connID := range rm.members {
		if connID == excludeConnID {
			continue
		}
		if sess := m.registry.Get(connID); sess != nil {
			sess.Send(event)
		}
	}
}

// RoomsOf returns the conversation IDs a connection is subscribed to.
func (m *RoomManager) RoomsOf(connID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for conversationID, rm := range m.rooms {
		rm.mu.Lock()
		_, member := rm.members[connID]
		rm.mu.Unlock()
		if member {
			ids = append(ids, conversationID)
		}
	}
	return ids
}

// SubscriberCount returns the number of subscribers in a conversation's room.
func (m *RoomManager) SubscriberCount(conversationID string) int {
	m.mu.RLock()
	rm, ok := m.rooms[conversationID]
	m.mu.RUnlock()
	if !ok {
		return 0
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.members)
}

// RoomCount returns the number of live rooms.
func (m *RoomManager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
