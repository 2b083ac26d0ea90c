package chatstore

import (
	"errors"
	"fmt"
	"time"

	domain "github.com/example/chat-backend/domain/chat"
	"gorm.io/gorm"
)

var (
	// ErrConversationNotFound is returned when a conversation does not exist.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrAlreadyParticipant is returned when adding a user who is already a participant.
	ErrAlreadyParticipant = errors.New("user is already a participant")
)

// Repository provides access to conversation, participant, and message storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new chat store repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateConversation saves a conversation and its initial participants in one
// transaction.
func (r *Repository) CreateConversation(conv *domain.Conversation, participants []domain.Participant) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		for i := range participants {
			if err := tx.Create(&participants[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// FindConversation retrieves a conversation by ID.
func (r *Repository) FindConversation(id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := r.db.First(&conv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return &conv, nil
}

// ListConversations returns the conversations a user participates in, most
// recently active first.
func (r *Repository) ListConversations(userID string) ([]*domain.Conversation, error) {
	var convs []*domain.Conversation
	err := r.db.
		Joins("JOIN participants ON participants.conversation_id = conversations.id").
		Where("participants.user_id = ?", userID).
		Order("conversations.last_activity DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// FindParticipant returns the participant record for a user in a conversation.
func (r *Repository) FindParticipant(conversationID, userID string) (*domain.Participant, error) {
	var p domain.Participant
	err := r.db.First(&p, "conversation_id = ? AND user_id = ?", conversationID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotAParticipant
		}
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return &p, nil
}

// AddParticipant adds a user to a conversation.
func (r *Repository) AddParticipant(p *domain.Participant) error {
	var count int64
	err := r.db.Model(&domain.Participant{}).
		Where("conversation_id = ? AND user_id = ?", p.ConversationID, p.UserID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check participant: %w", err)
	}
	if count > 0 {
		return ErrAlreadyParticipant
	}
	if err := r.db.Create(p).Error; err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// RemoveParticipant removes a user from a conversation.
func (r *Repository) RemoveParticipant(conversationID, userID string) error {
	result := r.db.Delete(&domain.Participant{}, "conversation_id = ? AND user_id = ?", conversationID, userID)
	if result.Error != nil {
		return fmt.Errorf("failed to remove participant: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotAParticipant
	}
	return nil
}

// CreateMessage saves a new message.
func (r *Repository) CreateMessage(msg *domain.Message) error {
	if err := r.db.Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// TouchConversation bumps a conversation's last-activity timestamp.
func (r *Repository) TouchConversation(conversationID string, at time.Time) error {
	result := r.db.Model(&domain.Conversation{}).
		Where("id = ?", conversationID).
		Update("last_activity", at)
	if result.Error != nil {
		return fmt.Errorf("failed to touch conversation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// UpdatePreview stores the denormalized preview of the latest message.
func (r *Repository) UpdatePreview(conversationID, preview string) error {
	result := r.db.Model(&domain.Conversation{}).
		Where("id = ?", conversationID).
		Update("last_preview", preview)
	if result.Error != nil {
		return fmt.Errorf("failed to update preview: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// ListMessages returns up to limit messages of a conversation, oldest first.
// A non-zero before narrows the page to messages created before it.
func (r *Repository) ListMessages(conversationID string, limit int, before time.Time) ([]*domain.Message, error) {
	q := r.db.Where("conversation_id = ?", conversationID)
	if !before.IsZero() {
		q = q.Where("created_at < ?", before)
	}

	var msgs []*domain.Message
	if err := q.Order("created_at DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	// Reverse to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// SearchMessages returns messages matching query across all conversations the
// user participates in, newest first.
func (r *Repository) SearchMessages(userID, query string, limit int) ([]*domain.Message, error) {
	var msgs []*domain.Message
	err := r.db.
		Joins("JOIN participants ON participants.conversation_id = messages.conversation_id").
		Where("participants.user_id = ? AND messages.content LIKE ?", userID, "%"+query+"%").
		Order("messages.created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	return msgs, nil
}
