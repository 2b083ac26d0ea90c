package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// MessageSentEvent is emitted after a message has been persisted and fanned
// out to its conversation.
type MessageSentEvent struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Preview        string    `json:"preview"`
	Timestamp      time.Time `json:"timestamp"`
}

// StatusChangedEvent is emitted when a user's presence status changes,
// either explicitly or through connect/disconnect transitions.
type StatusChangedEvent struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the realtime domain.
var (
	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"realtime",
		"MessageSent",
		"v1",
	)

	StatusChangedV1 = helper.EventDefinition[StatusChangedEvent](
		"realtime",
		"StatusChanged",
		"v1",
	)
)
