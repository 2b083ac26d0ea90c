package realtime

import (
	"log"
	"time"

	"github.com/example/chat-backend/events"
	"github.com/go-monolith/mono"
)

// PresenceBroadcaster propagates online/offline/status transitions to every
// live connection, not just shared-conversation participants.
type PresenceBroadcaster struct {
	registry *Registry
	bus      mono.EventBus
}

// NewPresenceBroadcaster creates a broadcaster over the registry.
func NewPresenceBroadcaster(registry *Registry) *PresenceBroadcaster {
	return &PresenceBroadcaster{registry: registry}
}

// SetEventBus attaches the application event bus. Optional; without it
// presence changes still fan out to connections but no bus event is published.
func (b *PresenceBroadcaster) SetEventBus(bus mono.EventBus) {
	b.bus = bus
}

// Announce fans a status transition out to all live connections, best-effort
// per connection, and publishes it on the event bus.
func (b *PresenceBroadcaster) Announce(userID, username, status string) {
	event := Event{
		Type: EventUserStatusChanged,
		Payload: StatusPayload{
			UserID:   userID,
			Username: username,
			Status:   status,
		},
	}

	for _, sess := range b.registry.Sessions() {
		sess.Send(event)
	}

	if b.bus != nil {
		err := events.StatusChangedV1.Publish(b.bus, events.StatusChangedEvent{
			UserID:    userID,
			Username:  username,
			Status:    status,
			Timestamp: time.Now(),
		}, nil)
		if err != nil {
			log.Printf("[realtime] Failed to publish StatusChanged event: %v", err)
		}
	}
}
