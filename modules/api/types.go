package api

import "time"

// RegisterRequest is the API request to create an account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the API request to authenticate.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the API request to rotate a token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse carries an issued token pair.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// UserResponse is the API representation of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	LastSeen  time.Time `json:"last_seen"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateStatusRequest is the API request to change presence status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// CreateConversationRequest is the API request to start a conversation.
type CreateConversationRequest struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	MemberIDs []string `json:"member_ids"`
}

// ConversationResponse is the API representation of a conversation.
type ConversationResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	LastActivity time.Time `json:"last_activity"`
	LastPreview  string    `json:"last_preview,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ConversationListResponse lists a user's conversations.
type ConversationListResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

// AddParticipantRequest is the API request to add a conversation member.
type AddParticipantRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// MessageResponse is the API representation of a message.
type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	Type           string    `json:"type"`
	CreatedAt      time.Time `json:"created_at"`
}

// HistoryResponse is the API response for message history.
type HistoryResponse struct {
	ConversationID string            `json:"conversation_id"`
	Messages       []MessageResponse `json:"messages"`
}

// SearchResponse is the API response for message search.
type SearchResponse struct {
	Query    string            `json:"query"`
	Messages []MessageResponse `json:"messages"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
