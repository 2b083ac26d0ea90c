package chatstore

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	domain "github.com/example/chat-backend/domain/chat"
	"github.com/google/uuid"
)

// Validation constants.
const (
	MaxConversationNameLength = 100
	MaxMessageLength          = 5000
	DefaultHistoryLimit       = 50
	MaxHistoryLimit           = 1000
)

// Validation errors.
var (
	ErrNameRequired       = errors.New("conversation name is required for group conversations")
	ErrNameTooLong        = errors.New("conversation name exceeds maximum length")
	ErrInvalidType        = errors.New("invalid conversation type")
	ErrNoParticipants     = errors.New("a conversation needs at least two participants")
	ErrMessageEmpty       = errors.New("message content cannot be empty")
	ErrMessageTooLong     = errors.New("message exceeds maximum length")
	ErrInvalidMessageType = errors.New("invalid message type")
)

// StoreService implements the durable store operations consumed by the
// realtime core and the REST API.
type StoreService struct {
	repo *Repository
}

// NewStoreService creates a new StoreService.
func NewStoreService(repo *Repository) *StoreService {
	return &StoreService{repo: repo}
}

// CreateConversation creates a conversation with the creator as admin and the
// given members as regular participants.
func (s *StoreService) CreateConversation(_ context.Context, name, convType, creatorID string, memberIDs []string) (*domain.Conversation, error) {
	switch convType {
	case domain.ConversationDirect, domain.ConversationGroup:
	case "":
		convType = domain.ConversationGroup
	default:
		return nil, ErrInvalidType
	}

	if convType == domain.ConversationGroup && name == "" {
		return nil, ErrNameRequired
	}
	if len(name) > MaxConversationNameLength {
		return nil, ErrNameTooLong
	}
	if len(memberIDs) == 0 {
		return nil, ErrNoParticipants
	}

	now := time.Now()
	conv := &domain.Conversation{
		ID:           uuid.New().String(),
		Name:         name,
		Type:         convType,
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	participants := []domain.Participant{
		{ConversationID: conv.ID, UserID: creatorID, Role: domain.RoleAdmin, JoinedAt: now},
	}
	for _, id := range memberIDs {
		if id == creatorID {
			continue
		}
		participants = append(participants, domain.Participant{
			ConversationID: conv.ID,
			UserID:         id,
			Role:           domain.RoleMember,
			JoinedAt:       now,
		})
	}
	if len(participants) < 2 {
		return nil, ErrNoParticipants
	}

	if err := s.repo.CreateConversation(conv, participants); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation retrieves a conversation by ID.
func (s *StoreService) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	return s.repo.FindConversation(id)
}

// ListConversations lists a user's conversations, most recently active first.
func (s *StoreService) ListConversations(_ context.Context, userID string) ([]*domain.Conversation, error) {
	return s.repo.ListConversations(userID)
}

// ParticipantRole returns the user's role in the conversation, or
// domain.ErrNotAParticipant.
func (s *StoreService) ParticipantRole(_ context.Context, userID, conversationID string) (string, error) {
	p, err := s.repo.FindParticipant(conversationID, userID)
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

// AddParticipant adds userID to the conversation. The acting user must be an
// admin of the conversation.
func (s *StoreService) AddParticipant(_ context.Context, conversationID, actorID, userID, role string) error {
	if role != domain.RoleAdmin && role != domain.RoleMember {
		role = domain.RoleMember
	}

	actor, err := s.repo.FindParticipant(conversationID, actorID)
	if err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin {
		return domain.ErrNotAdmin
	}

	return s.repo.AddParticipant(&domain.Participant{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		JoinedAt:       time.Now(),
	})
}

// RemoveParticipant removes userID from the conversation. Users may remove
// themselves; removing anyone else requires the admin role.
func (s *StoreService) RemoveParticipant(_ context.Context, conversationID, actorID, userID string) error {
	if actorID != userID {
		actor, err := s.repo.FindParticipant(conversationID, actorID)
		if err != nil {
			return err
		}
		if actor.Role != domain.RoleAdmin {
			return domain.ErrNotAdmin
		}
	}
	return s.repo.RemoveParticipant(conversationID, userID)
}

// InsertMessage persists a message and returns it with the generated ID and
// creation timestamp. Participant authorization is the caller's concern.
func (s *StoreService) InsertMessage(_ context.Context, conversationID, senderID, content, msgType string) (*domain.Message, error) {
	if content == "" {
		return nil, ErrMessageEmpty
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	if msgType == "" {
		msgType = domain.MessageText
	}
	if !domain.ValidMessageType(msgType) {
		return nil, ErrInvalidMessageType
	}

	if _, err := s.repo.FindConversation(conversationID); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           msgType,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.CreateMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// TouchConversation bumps the conversation's last-activity timestamp.
func (s *StoreService) TouchConversation(_ context.Context, conversationID string) error {
	return s.repo.TouchConversation(conversationID, time.Now())
}

// UpdatePreview stores the preview of the latest message on the conversation.
func (s *StoreService) UpdatePreview(_ context.Context, conversationID, preview string) error {
	return s.repo.UpdatePreview(conversationID, preview)
}

// GetHistory returns up to limit messages of the conversation in
// chronological order, optionally before a given timestamp.
func (s *StoreService) GetHistory(_ context.Context, conversationID string, limit int, before time.Time) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if _, err := s.repo.FindConversation(conversationID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(conversationID, limit, before)
}

// SearchMessages searches the user's conversations for messages containing
// query.
func (s *StoreService) SearchMessages(_ context.Context, userID, query string, limit int) ([]*domain.Message, error) {
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.repo.SearchMessages(userID, query, limit)
}
