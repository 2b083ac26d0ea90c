package chatstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/chat-backend/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// StorePort is the interface other modules use to reach conversation storage.
type StorePort interface {
	CreateConversation(ctx context.Context, name, convType, creatorID string, memberIDs []string) (*domain.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error)
	IsParticipant(ctx context.Context, userID, conversationID string) (bool, string, error)
	AddParticipant(ctx context.Context, conversationID, actorID, userID, role string) error
	RemoveParticipant(ctx context.Context, conversationID, actorID, userID string) error
	InsertMessage(ctx context.Context, conversationID, senderID, content, msgType string) (string, time.Time, error)
	TouchConversation(ctx context.Context, conversationID string) error
	GetHistory(ctx context.Context, conversationID string, limit int, before time.Time) ([]*domain.Message, error)
	SearchMessages(ctx context.Context, userID, query string, limit int) ([]*domain.Message, error)
}

// StoreAdapter implements StorePort over the chatstore service container.
type StoreAdapter struct {
	container mono.ServiceContainer
}

// NewStoreAdapter creates an adapter bound to the chatstore container.
func NewStoreAdapter(container mono.ServiceContainer) *StoreAdapter {
	return &StoreAdapter{container: container}
}

// CreateConversation creates a conversation with its initial participant set.
func (a *StoreAdapter) CreateConversation(ctx context.Context, name, convType, creatorID string, memberIDs []string) (*domain.Conversation, error) {
	req := CreateConversationRequest{
		Name:      name,
		Type:      convType,
		CreatorID: creatorID,
		MemberIDs: memberIDs,
	}
	var resp CreateConversationResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"create-conversation",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("create-conversation call failed: %w", err)
	}

	if resp.Error != "" {
		return nil, decodeError(resp.Code, resp.Error)
	}
	return resp.Conversation, nil
}

// GetConversation fetches a single conversation by ID.
func (a *StoreAdapter) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	req := GetConversationRequest{ConversationID: conversationID}
	var resp GetConversationResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-conversation",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-conversation call failed: %w", err)
	}

	if resp.Error != "" {
		return nil, decodeError(resp.Code, resp.Error)
	}
	return resp.Conversation, nil
}

// ListConversations returns the conversations a user belongs to.
func (a *StoreAdapter) ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	req := ListConversationsRequest{UserID: userID}
	var resp ListConversationsResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"list-conversations",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("list-conversations call failed: %w", err)
	}

	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return resp.Conversations, nil
}

// IsParticipant reports whether a user belongs to a conversation, and their role.
func (a *StoreAdapter) IsParticipant(ctx context.Context, userID, conversationID string) (bool, string, error) {
	req := IsParticipantRequest{UserID: userID, ConversationID: conversationID}
	var resp IsParticipantResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"is-participant",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return false, "", fmt.Errorf("is-participant call failed: %w", err)
	}

	if resp.Error != "" {
		return false, "", errors.New(resp.Error)
	}
	return resp.Participant, resp.Role, nil
}

// AddParticipant adds a user to a conversation on behalf of an admin actor.
func (a *StoreAdapter) AddParticipant(ctx context.Context, conversationID, actorID, userID, role string) error {
	req := AddParticipantRequest{
		ConversationID: conversationID,
		ActorID:        actorID,
		UserID:         userID,
		Role:           role,
	}
	return a.callMutation(ctx, "add-participant", &req)
}

// RemoveParticipant removes a user from a conversation.
func (a *StoreAdapter) RemoveParticipant(ctx context.Context, conversationID, actorID, userID string) error {
	req := RemoveParticipantRequest{
		ConversationID: conversationID,
		ActorID:        actorID,
		UserID:         userID,
	}
	return a.callMutation(ctx, "remove-participant", &req)
}

// InsertMessage persists a message and returns its ID and timestamp.
func (a *StoreAdapter) InsertMessage(ctx context.Context, conversationID, senderID, content, msgType string) (string, time.Time, error) {
	req := InsertMessageRequest{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           msgType,
	}
	var resp InsertMessageResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"insert-message",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return "", time.Time{}, fmt.Errorf("insert-message call failed: %w", err)
	}

	if resp.Error != "" {
		return "", time.Time{}, decodeError(resp.Code, resp.Error)
	}
	return resp.MessageID, resp.CreatedAt, nil
}

// TouchConversation bumps a conversation's last-activity timestamp.
func (a *StoreAdapter) TouchConversation(ctx context.Context, conversationID string) error {
	req := TouchConversationRequest{ConversationID: conversationID}
	return a.callMutation(ctx, "touch-conversation", &req)
}

// GetHistory returns messages in chronological order with optional paging.
func (a *StoreAdapter) GetHistory(ctx context.Context, conversationID string, limit int, before time.Time) ([]*domain.Message, error) {
	req := GetHistoryRequest{ConversationID: conversationID, Limit: limit, Before: before}
	var resp GetHistoryResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-history",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-history call failed: %w", err)
	}

	if resp.Error != "" {
		return nil, decodeError(resp.Code, resp.Error)
	}
	return resp.Messages, nil
}

// SearchMessages searches the user's conversations for matching content.
func (a *StoreAdapter) SearchMessages(ctx context.Context, userID, query string, limit int) ([]*domain.Message, error) {
	req := SearchMessagesRequest{UserID: userID, Query: query, Limit: limit}
	var resp SearchMessagesResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"search-messages",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("search-messages call failed: %w", err)
	}

	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return resp.Messages, nil
}

func (a *StoreAdapter) callMutation(ctx context.Context, service string, req any) error {
	var resp MutationResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return fmt.Errorf("%s call failed: %w", service, err)
	}

	if !resp.Success {
		return decodeError(resp.Code, resp.Error)
	}
	return nil
}

// decodeError restores domain sentinels from wire codes so callers can use errors.Is.
func decodeError(code, msg string) error {
	switch code {
	case CodeNotFound:
		return ErrConversationNotFound
	case CodeNotParticipant:
		return domain.ErrNotAParticipant
	case CodeNotAdmin:
		return domain.ErrNotAdmin
	default:
		return errors.New(msg)
	}
}
