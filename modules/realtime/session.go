package realtime

// Sender delivers outbound events to one connection. Send must never block;
// it reports false when the event was dropped (slow or closed connection).
type Sender interface {
	Send(event Event) bool
}

// Session is one live, authenticated connection.
type Session struct {
	ID       string
	UserID   string
	Username string

	sender Sender
}

// NewSession binds a connection identity to its outbound sender.
func NewSession(id, userID, username string, sender Sender) *Session {
	return &Session{
		ID:       id,
		UserID:   userID,
		Username: username,
		sender:   sender,
	}
}

// Send forwards an event to the connection, best-effort.
func (s *Session) Send(event Event) bool {
	return s.sender.Send(event)
}
