// Package chat defines the shared entities of the messaging backend.
package chat

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Conversation types.
const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

// Participant roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User presence statuses.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusBusy    = "busy"
	StatusOffline = "offline"
)

// Message content types.
const (
	MessageText  = "text"
	MessageImage = "image"
	MessageFile  = "file"
)

// Authorization errors shared across modules.
var (
	// ErrNotAParticipant is returned when a user is not a participant of a conversation.
	ErrNotAParticipant = errors.New("user is not a participant of this conversation")
	// ErrNotAdmin is returned when an operation requires the admin role.
	ErrNotAdmin = errors.New("user is not an admin of this conversation")
)

// ValidStatus reports whether s is a recognized presence status.
func ValidStatus(s string) bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// ValidMessageType reports whether t is a recognized message content type.
func ValidMessageType(t string) bool {
	switch t {
	case MessageText, MessageImage, MessageFile:
		return true
	}
	return false
}

// User represents a registered user.
type User struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	Username     string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string         `gorm:"size:100;not null" json:"-"`
	Status       string         `gorm:"size:16;not null;default:offline" json:"status"`
	LastSeen     time.Time      `json:"last_seen"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Conversation represents a direct or group conversation.
type Conversation struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"size:100" json:"name"`
	Type         string    `gorm:"size:16;not null;default:group" json:"type"`
	LastActivity time.Time `gorm:"index" json:"last_activity"`
	// 50 preview runes plus the ellipsis can reach ~203 bytes of UTF-8.
	LastPreview  string    `gorm:"size:256" json:"last_preview"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the table name for the Conversation entity.
func (Conversation) TableName() string {
	return "conversations"
}

// Participant links a user to a conversation with a role.
type Participant struct {
	ConversationID string    `gorm:"primaryKey;size:36" json:"conversation_id"`
	UserID         string    `gorm:"primaryKey;size:36" json:"user_id"`
	Role           string    `gorm:"size:16;not null;default:member" json:"role"`
	JoinedAt       time.Time `json:"joined_at"`
}

// TableName returns the table name for the Participant entity.
func (Participant) TableName() string {
	return "participants"
}

// Message represents a persisted chat message.
type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"index;size:36;not null" json:"conversation_id"`
	SenderID       string    `gorm:"index;size:36;not null" json:"sender_id"`
	Content        string    `gorm:"size:5000;not null" json:"content"`
	Type           string    `gorm:"size:16;not null;default:text" json:"type"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string {
	return "messages"
}

// Claims is the verified identity attached to a connection or request.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// TokenPair represents access and refresh tokens issued on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
