package realtime

import (
	"context"
	"errors"
	"log"
	"time"

	domain "github.com/example/chat-backend/domain/chat"
	"github.com/example/chat-backend/events"
	"github.com/go-monolith/mono"
)

// MessageStore is the slice of the durable store the router writes through.
type MessageStore interface {
	ParticipantChecker
	InsertMessage(ctx context.Context, conversationID, senderID, content, msgType string) (string, time.Time, error)
	TouchConversation(ctx context.Context, conversationID string) error
}

// UserStore persists presence transitions and status changes.
type UserStore interface {
	SetUserStatus(ctx context.Context, userID, status string, lastSeen time.Time) error
}

// Router is the single entry point for inbound client events. One instance is
// shared by all connections; each connection's read loop calls into it from
// its own goroutine.
type Router struct {
	registry  *Registry
	rooms     *RoomManager
	validator *MembershipValidator
	presence  *PresenceBroadcaster
	store     MessageStore
	users     UserStore
	bus       mono.EventBus
}

// NewRouter wires the fan-out core together.
func NewRouter(registry *Registry, rooms *RoomManager, validator *MembershipValidator, presence *PresenceBroadcaster, store MessageStore, users UserStore) *Router {
	return &Router{
		registry:  registry,
		rooms:     rooms,
		validator: validator,
		presence:  presence,
		store:     store,
		users:     users,
	}
}

// SetEventBus attaches the application event bus for collaborator events.
func (r *Router) SetEventBus(bus mono.EventBus) {
	r.bus = bus
}

// HandleConnect registers an authenticated connection. The user's online
// transition is announced globally only for their first connection.
func (r *Router) HandleConnect(sess *Session) error {
	wentOnline, err := r.registry.Register(sess)
	if err != nil {
		return err
	}

	if wentOnline {
		r.presence.Announce(sess.UserID, sess.Username, domain.StatusOnline)
	}

	log.Printf("[realtime] Connection %s registered (user: %s)", sess.ID, sess.Username)
	return nil
}

// HandleJoin subscribes the connection to a conversation room after the store
// confirms participation.
func (r *Router) HandleJoin(ctx context.Context, sess *Session, conversationID string) {
	if _, err := r.validator.CheckParticipant(ctx, sess.UserID, conversationID); err != nil {
		if errors.Is(err, domain.ErrNotAParticipant) {
			sess.Send(errorEvent("you are not a participant of this conversation"))
			return
		}
		log.Printf("[realtime] Membership check failed for user %s: %v", sess.UserID, err)
		sess.Send(errorEvent("failed to join conversation"))
		return
	}

	r.rooms.Join(conversationID, sess.ID)
	sess.Send(Event{
		Type:    EventConversationJoined,
		Payload: ConversationPayload{ConversationID: conversationID},
	})
}

// HandleLeave unsubscribes the connection from a conversation room.
func (r *Router) HandleLeave(_ context.Context, sess *Session, conversationID string) {
	r.rooms.Leave(conversationID, sess.ID)
	sess.Send(Event{
		Type:    EventConversationLeft,
		Payload: ConversationPayload{ConversationID: conversationID},
	})
}

// HandleSendMessage validates participation, persists the message, then fans
// it out. A store failure at any step aborts the remaining steps: the sender
// gets one error event and no broadcast is emitted.
func (r *Router) HandleSendMessage(ctx context.Context, sess *Session, conversationID, content, msgType string) {
	if msgType == "" {
		msgType = domain.MessageText
	}

	if _, err := r.validator.CheckParticipant(ctx, sess.UserID, conversationID); err != nil {
		if errors.Is(err, domain.ErrNotAParticipant) {
			sess.Send(errorEvent("you are not a participant of this conversation"))
			return
		}
		log.Printf("[realtime] Membership check failed for user %s: %v", sess.UserID, err)
		sess.Send(errorEvent("failed to send message"))
		return
	}

	messageID, createdAt, err := r.store.InsertMessage(ctx, conversationID, sess.UserID, content, msgType)
	if err != nil {
		log.Printf("[realtime] Failed to persist message from user %s: %v", sess.UserID, err)
		sess.Send(errorEvent("failed to send message"))
		return
	}

	if err := r.store.TouchConversation(ctx, conversationID); err != nil {
		log.Printf("[realtime] Failed to touch conversation %s: %v", conversationID, err)
		sess.Send(errorEvent("failed to send message"))
		return
	}

	preview := truncatePreview(content)

	// Full message to every subscriber, the sender's other devices included.
	r.rooms.Broadcast(conversationID, Event{
		Type: EventNewMessage,
		Payload: NewMessagePayload{
			ID:             messageID,
			ConversationID: conversationID,
			SenderID:       sess.UserID,
			SenderName:     sess.Username,
			Content:        content,
			MessageType:    msgType,
			CreatedAt:      createdAt,
		},
	}, "")

	// Preview to everyone except the originating connection.
	r.rooms.Broadcast(conversationID, Event{
		Type: EventMessageNotification,
		Payload: NotificationPayload{
			ConversationID: conversationID,
			SenderName:     sess.Username,
			Preview:        preview,
		},
	}, sess.ID)

	if r.bus != nil {
		err := events.MessageSentV1.Publish(r.bus, events.MessageSentEvent{
			MessageID:      messageID,
			ConversationID: conversationID,
			SenderID:       sess.UserID,
			SenderName:     sess.Username,
			Preview:        preview,
			Timestamp:      createdAt,
		}, nil)
		if err != nil {
			log.Printf("[realtime] Failed to publish MessageSent event: %v", err)
		}
	}
}

// HandleTypingStart relays a typing indicator to the room, excluding the
// originating connection. Ephemeral, never persisted.
func (r *Router) HandleTypingStart(_ context.Context, sess *Session, conversationID string) {
	r.rooms.Broadcast(conversationID, Event{
		Type: EventUserTyping,
		Payload: TypingPayload{
			ConversationID: conversationID,
			UserID:         sess.UserID,
			Username:       sess.Username,
		},
	}, sess.ID)
}

// HandleTypingStop relays the end of a typing indicator.
func (r *Router) HandleTypingStop(_ context.Context, sess *Session, conversationID string) {
	r.rooms.Broadcast(conversationID, Event{
		Type: EventUserStoppedTyping,
		Payload: TypingPayload{
			ConversationID: conversationID,
			UserID:         sess.UserID,
		},
	}, sess.ID)
}

// HandleStatusUpdate persists the new status and announces it to every live
// connection globally. A persist failure aborts the announce.
func (r *Router) HandleStatusUpdate(ctx context.Context, sess *Session, status string) {
	if err := r.users.SetUserStatus(ctx, sess.UserID, status, time.Now()); err != nil {
		log.Printf("[realtime] Failed to persist status for user %s: %v", sess.UserID, err)
		sess.Send(errorEvent("failed to update status"))
		return
	}

	r.presence.Announce(sess.UserID, sess.Username, status)
}

// HandleDisconnect tears down a connection: deregister, leave every room,
// and, when the user's last connection went away, persist the offline
// transition and announce it globally exactly once. Safe to call twice.
func (r *Router) HandleDisconnect(ctx context.Context, connID string) {
	sess, wentOffline := r.registry.Deregister(connID)
	if sess == nil {
		return
	}

	r.rooms.LeaveAll(connID)

	if wentOffline {
		if err := r.users.SetUserStatus(ctx, sess.UserID, domain.StatusOffline, time.Now()); err != nil {
			log.Printf("[realtime] Failed to persist offline status for user %s: %v", sess.UserID, err)
		}
		r.presence.Announce(sess.UserID, sess.Username, domain.StatusOffline)
	}

	log.Printf("[realtime] Connection %s deregistered (user: %s)", connID, sess.Username)
}
