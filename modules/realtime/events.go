package realtime

import "time"

// Inbound client event types.
const (
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"
	EventUpdateStatus      = "update_status"
)

// Outbound server event types.
const (
	EventConversationJoined  = "conversation_joined"
	EventConversationLeft    = "conversation_left"
	EventNewMessage          = "new_message"
	EventMessageNotification = "message_notification"
	EventUserTyping          = "user_typing"
	EventUserStoppedTyping   = "user_stopped_typing"
	EventUserStatusChanged   = "user_status_changed"
	EventError               = "error"
)

// PreviewLength is the maximum rune count of a notification preview.
const PreviewLength = 50

// ClientEvent is the inbound wire envelope. The type field selects which
// of the remaining fields are meaningful.
type ClientEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
	MessageType    string `json:"message_type,omitempty"`
	Status         string `json:"status,omitempty"`
}

// Event is an outbound server event with a typed payload.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ConversationPayload acknowledges a join or leave to the requester.
type ConversationPayload struct {
	ConversationID string `json:"conversation_id"`
}

// NewMessagePayload carries the full persisted message.
type NewMessagePayload struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	CreatedAt      time.Time `json:"created_at"`
}

// NotificationPayload carries a truncated preview for conversation list UIs.
type NotificationPayload struct {
	ConversationID string `json:"conversation_id"`
	SenderName     string `json:"sender_name"`
	Preview        string `json:"preview"`
}

// TypingPayload announces a typing indicator change.
type TypingPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Username       string `json:"username,omitempty"`
}

// StatusPayload announces a global presence transition.
type StatusPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

// ErrorPayload carries a human-readable error back to the sender.
type ErrorPayload struct {
	Message string `json:"message"`
}

// errorEvent builds an error event for the originating connection.
func errorEvent(message string) Event {
	return Event{Type: EventError, Payload: ErrorPayload{Message: message}}
}

// truncatePreview shortens content to PreviewLength runes without splitting
// a multi-byte character.
func truncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength]) + "..."
}
