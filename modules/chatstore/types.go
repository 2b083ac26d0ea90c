package chatstore

import (
	"time"

	domain "github.com/example/chat-backend/domain/chat"
)

// Error codes carried in service responses across the container boundary.
const (
	CodeNotFound       = "not_found"
	CodeNotParticipant = "not_a_participant"
	CodeNotAdmin       = "not_admin"
	CodeInvalid        = "invalid"
)

// CreateConversationRequest asks for a new conversation.
type CreateConversationRequest struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	CreatorID string   `json:"creator_id"`
	MemberIDs []string `json:"member_ids"`
}

// CreateConversationResponse returns the created conversation.
type CreateConversationResponse struct {
	Conversation *domain.Conversation `json:"conversation,omitempty"`
	Error        string               `json:"error,omitempty"`
	Code         string               `json:"code,omitempty"`
}

// GetConversationRequest fetches one conversation.
type GetConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

// GetConversationResponse returns one conversation.
type GetConversationResponse struct {
	Conversation *domain.Conversation `json:"conversation,omitempty"`
	Error        string               `json:"error,omitempty"`
	Code         string               `json:"code,omitempty"`
}

// ListConversationsRequest lists a user's conversations.
type ListConversationsRequest struct {
	UserID string `json:"user_id"`
}

// ListConversationsResponse returns the user's conversations.
type ListConversationsResponse struct {
	Conversations []*domain.Conversation `json:"conversations"`
	Error         string                 `json:"error,omitempty"`
}

// IsParticipantRequest checks conversation membership.
type IsParticipantRequest struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

// IsParticipantResponse reports membership and role.
type IsParticipantResponse struct {
	Participant bool   `json:"participant"`
	Role        string `json:"role,omitempty"`
	Error       string `json:"error,omitempty"`
	Code        string `json:"code,omitempty"`
}

// AddParticipantRequest adds a user to a conversation.
type AddParticipantRequest struct {
	ConversationID string `json:"conversation_id"`
	ActorID        string `json:"actor_id"`
	UserID         string `json:"user_id"`
	Role           string `json:"role"`
}

// RemoveParticipantRequest removes a user from a conversation.
type RemoveParticipantRequest struct {
	ConversationID string `json:"conversation_id"`
	ActorID        string `json:"actor_id"`
	UserID         string `json:"user_id"`
}

// MutationResponse reports the outcome of a participant mutation.
type MutationResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// InsertMessageRequest persists one message.
type InsertMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Content        string `json:"content"`
	Type           string `json:"type"`
}

// InsertMessageResponse returns the persisted message identity.
type InsertMessageResponse struct {
	MessageID string    `json:"message_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	Error     string    `json:"error,omitempty"`
	Code      string    `json:"code,omitempty"`
}

// TouchConversationRequest bumps a conversation's activity timestamp.
type TouchConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

// GetHistoryRequest pages through a conversation's messages.
type GetHistoryRequest struct {
	ConversationID string    `json:"conversation_id"`
	Limit          int       `json:"limit"`
	Before         time.Time `json:"before,omitempty"`
}

// GetHistoryResponse returns a page of messages in chronological order.
type GetHistoryResponse struct {
	Messages []*domain.Message `json:"messages"`
	Error    string            `json:"error,omitempty"`
	Code     string            `json:"code,omitempty"`
}

// SearchMessagesRequest searches a user's conversations.
type SearchMessagesRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
}

// SearchMessagesResponse returns matching messages, newest first.
type SearchMessagesResponse struct {
	Messages []*domain.Message `json:"messages"`
	Error    string            `json:"error,omitempty"`
}
