package realtime

import (
	"errors"
	"sync"
)

// ErrDuplicateConnection is returned when a connection ID is registered twice.
var ErrDuplicateConnection = errors.New("connection already registered")

// Registry tracks live connections and derives per-user presence from them.
// A user is online iff they hold at least one registered connection.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	presence map[string]map[string]struct{}
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		presence: make(map[string]map[string]struct{}),
	}
}

// Register records a live connection. It returns whether this is the user's
// first connection (the online transition), and ErrDuplicateConnection if the
// connection ID is already known.
func (r *Registry) Register(sess *Session) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[sess.ID]; exists {
		return false, ErrDuplicateConnection
	}

	r.sessions[sess.ID] = sess

	conns, ok := r.presence[sess.UserID]
	if !ok {
		conns = make(map[string]struct{})
		r.presence[sess.UserID] = conns
	}
	wentOnline := len(conns) == 0
	conns[sess.ID] = struct{}{}

	return wentOnline, nil
}

// Deregister removes a connection. It returns the removed session and whether
// the user's last connection just went away (the offline transition). Unknown
// connection IDs are a no-op, tolerating double-disconnect.
func (r *Registry) Deregister(connID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return nil, false
	}
	delete(r.sessions, connID)

	wentOffline := false
	if conns, ok := r.presence[sess.UserID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.presence, sess.UserID)
			wentOffline = true
		}
	}

	return sess, wentOffline
}

// Get returns the session for a connection ID, or nil.
func (r *Registry) Get(connID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[connID]
}

// IsOnline reports whether the user holds at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.presence[userID]) > 0
}

// ConnectionsOf returns the connection IDs of a user's live connections.
func (r *Registry) ConnectionsOf(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.presence[userID]
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	return ids
}

// Sessions returns a snapshot of all live sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		all = append(all, sess)
	}
	return all
}

// ConnectionCount returns the number of live connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// OnlineUserCount returns the number of users with at least one connection.
func (r *Registry) OnlineUserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.presence)
}
