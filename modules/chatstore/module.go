package chatstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	domain "github.com/example/chat-backend/domain/chat"
	"github.com/example/chat-backend/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StoreModule provides durable conversation, participant, and message storage.
type StoreModule struct {
	db      *gorm.DB
	service *StoreService
	dbPath  string
}

// Compile-time interface checks.
var _ mono.Module = (*StoreModule)(nil)
var _ mono.ServiceProviderModule = (*StoreModule)(nil)
var _ mono.EventConsumerModule = (*StoreModule)(nil)
var _ mono.HealthCheckableModule = (*StoreModule)(nil)

// NewModule creates a new StoreModule.
func NewModule() *StoreModule {
	dbPath := os.Getenv("CHAT_DB_PATH")
	if dbPath == "" {
		dbPath = "chat_store.db"
	}
	return &StoreModule{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *StoreModule) Name() string {
	return "chatstore"
}

// Start initializes the store module.
func (m *StoreModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.Conversation{}, &domain.Participant{}, &domain.Message{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.service = NewStoreService(NewRepository(db))

	log.Printf("[chatstore] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop shuts down the module.
func (m *StoreModule) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[chatstore] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *StoreModule) Health(_ context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.Ping(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}

// RegisterEventConsumers subscribes to realtime events. The store consumes
// MessageSent to keep the denormalized conversation preview current.
func (m *StoreModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	log.Println("[chatstore] Registered event consumers: MessageSent")
	return nil
}

// handleMessageSent updates the conversation preview after a message fan-out.
func (m *StoreModule) handleMessageSent(ctx context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	if err := m.service.UpdatePreview(ctx, event.ConversationID, event.Preview); err != nil {
		log.Printf("[chatstore] Failed to update preview for conversation %s: %v", event.ConversationID, err)
	}
	// Never retry: previews are best-effort derived data.
	return nil
}

// RegisterServices registers request-reply services in the service container.
func (m *StoreModule) RegisterServices(container mono.ServiceContainer) error {
	services := []struct {
		name     string
		register func() error
	}{
		{"create-conversation", func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "create-conversation", json.Unmarshal, json.Marshal, m.handleCreateConversation)
		}},
		{"get-conversation", func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "get-conversation", json.Unmarshal, json.Marshal, m.handleGetConversation)
		}},
		{"list-conversations", func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "list-conversations", json.Unmarshal, json.Marshal, m.handleListConversations)
		}},
		{"is-participant", func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "is-participant", json.Unmarshal, json.Marshal, m.handleIsParticipant)
		}},
		{"add-participant", func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "add-participant", json.Unmarshal, json.Marshal, m.handleAddParticipant)
		}},
		{"remove-participant", func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "remove-participant", json.Unmarshal, json.Marshal, m.handleRemoveParticipant)
		}},
		{"insert-message", func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "insert-message", json.Unmarshal, json.Marshal, m.handleInsertMessage)
		}},
		{"touch-conversation", func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "touch-conversation", json.Unmarshal, json.Marshal, m.handleTouchConversation)
		}},
		{"get-history", func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "get-history", json.Unmarshal, json.Marshal, m.handleGetHistory)
		}},
		{"search-messages", func() error {
			return helper.RegisterTypedRequestReplyService(
				container, "search-messages", json.Unmarshal, json.Marshal, m.handleSearchMessages)
		}},
	}

	for _, svc := range services {
		if err := svc.register(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", svc.name, err)
		}
	}

	log.Printf("[chatstore] Registered %d services", len(services))
	return nil
}

func (m *StoreModule) handleCreateConversation(ctx context.Context, req CreateConversationRequest, _ *mono.Msg) (CreateConversationResponse, error) {
	conv, err := m.service.CreateConversation(ctx, req.Name, req.Type, req.CreatorID, req.MemberIDs)
	if err != nil {
		return CreateConversationResponse{Error: err.Error(), Code: CodeInvalid}, nil
	}
	return CreateConversationResponse{Conversation: conv}, nil
}

func (m *StoreModule) handleGetConversation(ctx context.Context, req GetConversationRequest, _ *mono.Msg) (GetConversationResponse, error) {
	conv, err := m.service.GetConversation(ctx, req.ConversationID)
	if err != nil {
		return GetConversationResponse{Error: err.Error(), Code: codeOf(err)}, nil
	}
	return GetConversationResponse{Conversation: conv}, nil
}

func (m *StoreModule) handleListConversations(ctx context.Context, req ListConversationsRequest, _ *mono.Msg) (ListConversationsResponse, error) {
	convs, err := m.service.ListConversations(ctx, req.UserID)
	if err != nil {
		return ListConversationsResponse{Error: err.Error()}, nil
	}
	return ListConversationsResponse{Conversations: convs}, nil
}

func (m *StoreModule) handleIsParticipant(ctx context.Context, req IsParticipantRequest, _ *mono.Msg) (IsParticipantResponse, error) {
	role, err := m.service.ParticipantRole(ctx, req.UserID, req.ConversationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotAParticipant) {
			return IsParticipantResponse{Participant: false, Code: CodeNotParticipant}, nil
		}
		return IsParticipantResponse{Error: err.Error()}, nil
	}
	return IsParticipantResponse{Participant: true, Role: role}, nil
}

func (m *StoreModule) handleAddParticipant(ctx context.Context, req AddParticipantRequest, _ *mono.Msg) (MutationResponse, error) {
	if err := m.service.AddParticipant(ctx, req.ConversationID, req.ActorID, req.UserID, req.Role); err != nil {
		return MutationResponse{Success: false, Error: err.Error(), Code: codeOf(err)}, nil
	}
	return MutationResponse{Success: true}, nil
}

func (m *StoreModule) handleRemoveParticipant(ctx context.Context, req RemoveParticipantRequest, _ *mono.Msg) (MutationResponse, error) {
	if err := m.service.RemoveParticipant(ctx, req.ConversationID, req.ActorID, req.UserID); err != nil {
		return MutationResponse{Success: false, Error: err.Error(), Code: codeOf(err)}, nil
	}
	return MutationResponse{Success: true}, nil
}

func (m *StoreModule) handleInsertMessage(ctx context.Context, req InsertMessageRequest, _ *mono.Msg) (InsertMessageResponse, error) {
	msg, err := m.service.InsertMessage(ctx, req.ConversationID, req.SenderID, req.Content, req.Type)
	if err != nil {
		return InsertMessageResponse{Error: err.Error(), Code: codeOf(err)}, nil
	}
	return InsertMessageResponse{MessageID: msg.ID, CreatedAt: msg.CreatedAt}, nil
}

func (m *StoreModule) handleTouchConversation(ctx context.Context, req TouchConversationRequest, _ *mono.Msg) (MutationResponse, error) {
	if err := m.service.TouchConversation(ctx, req.ConversationID); err != nil {
		return MutationResponse{Success: false, Error: err.Error(), Code: codeOf(err)}, nil
	}
	return MutationResponse{Success: true}, nil
}

func (m *StoreModule) handleGetHistory(ctx context.Context, req GetHistoryRequest, _ *mono.Msg) (GetHistoryResponse, error) {
	msgs, err := m.service.GetHistory(ctx, req.ConversationID, req.Limit, req.Before)
	if err != nil {
		return GetHistoryResponse{Error: err.Error(), Code: codeOf(err)}, nil
	}
	return GetHistoryResponse{Messages: msgs}, nil
}

func (m *StoreModule) handleSearchMessages(ctx context.Context, req SearchMessagesRequest, _ *mono.Msg) (SearchMessagesResponse, error) {
	msgs, err := m.service.SearchMessages(ctx, req.UserID, req.Query, req.Limit)
	if err != nil {
		return SearchMessagesResponse{Error: err.Error()}, nil
	}
	return SearchMessagesResponse{Messages: msgs}, nil
}

// codeOf maps service errors to wire codes for the adapter on the other side.
func codeOf(err error) string {
	switch {
	case errors.Is(err, ErrConversationNotFound):
		return CodeNotFound
	case errors.Is(err, domain.ErrNotAParticipant):
		return CodeNotParticipant
	case errors.Is(err, domain.ErrNotAdmin):
		return CodeNotAdmin
	default:
		return CodeInvalid
	}
}
