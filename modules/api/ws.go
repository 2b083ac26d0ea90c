package api

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	domain "github.com/example/chat-backend/domain/chat"
	"github.com/example/chat-backend/modules/realtime"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// sendBufferSize bounds the per-connection outbound queue. A connection
	// that falls this far behind starts losing events (delivery is
	// best-effort to live connections).
	sendBufferSize = 256

	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second
)

// wsSender queues outbound events for one connection. Send never blocks;
// the write pump drains the queue onto the wire.
type wsSender struct {
	events chan realtime.Event
	closed chan struct{}
	once   sync.Once
}

func newWSSender() *wsSender {
	return &wsSender{
		events: make(chan realtime.Event, sendBufferSize),
		closed: make(chan struct{}),
	}
}

// Send enqueues an event. Returns false if the connection is closed or the
// queue is full.
func (s *wsSender) Send(event realtime.Event) bool {
	select {
	case <-s.closed:
		return false
	default:
	}

	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}

func (s *wsSender) close() {
	s.once.Do(func() {
		close(s.closed)
	})
}

// wsUpgradeGuard verifies the bearer credential before the WebSocket upgrade
// completes, so an invalid token never yields a connection that could accept
// events. The token comes from the query string (browser WebSocket clients
// cannot set headers) or the Authorization header.
func (m *APIModule) wsUpgradeGuard(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		if authHeader := c.Get("Authorization"); len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
	}
	if token == "" {
		return fiber.ErrUnauthorized
	}

	claims, err := m.authAdapter.ValidateToken(c.UserContext(), token)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	c.Locals(UserContextKey, claims)
	return c.Next()
}

// handleWebSocket runs one authenticated WebSocket connection: it registers
// the session with the realtime core, pumps outbound events, and dispatches
// inbound events to the router until the connection drops.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	claims := c.Locals(UserContextKey).(*domain.Claims)
	router := m.rt.Router()

	connID := uuid.New().String()
	sender := newWSSender()
	sess := realtime.NewSession(connID, claims.UserID, claims.Username, sender)

	if err := router.HandleConnect(sess); err != nil {
		log.Printf("[api] Failed to register connection %s: %v", connID, err)
		_ = c.Close()
		return
	}

	done := make(chan struct{})
	go m.writePump(c, sender, done)

	defer func() {
		router.HandleDisconnect(context.Background(), connID)
		sender.close()
		<-done
		log.Printf("[api] WebSocket client disconnected: %s (%s)", connID, claims.Username)
	}()

	log.Printf("[api] WebSocket client connected: %s (%s)", connID, claims.Username)

	// Read loop
	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] Client %s closed connection", connID)
			} else {
				log.Printf("[api] Read error from %s: %v", connID, err)
			}
			return
		}

		var event realtime.ClientEvent
		if err := json.Unmarshal(msgBytes, &event); err != nil {
			m.sendError(sender, "Invalid event format")
			continue
		}

		m.dispatch(sess, sender, event)
	}
}

// dispatch routes one inbound client event to the realtime router.
func (m *APIModule) dispatch(sess *realtime.Session, sender *wsSender, event realtime.ClientEvent) {
	ctx := context.Background()
	router := m.rt.Router()

	switch event.Type {
	case realtime.EventJoinConversation:
		router.HandleJoin(ctx, sess, event.ConversationID)
	case realtime.EventLeaveConversation:
		router.HandleLeave(ctx, sess, event.ConversationID)
	case realtime.EventSendMessage:
		router.HandleSendMessage(ctx, sess, event.ConversationID, event.Content, event.MessageType)
	case realtime.EventTypingStart:
		router.HandleTypingStart(ctx, sess, event.ConversationID)
	case realtime.EventTypingStop:
		router.HandleTypingStop(ctx, sess, event.ConversationID)
	case realtime.EventUpdateStatus:
		router.HandleStatusUpdate(ctx, sess, event.Status)
	default:
		m.sendError(sender, "Unknown event type: "+event.Type)
	}
}

// writePump drains the sender queue onto the wire and keeps the connection
// alive with periodic pings. It owns all writes to the connection.
func (m *APIModule) writePump(c *websocket.Conn, sender *wsSender, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event := <-sender.events:
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sender.closed:
			return
		}
	}
}

func (m *APIModule) sendError(sender *wsSender, message string) {
	sender.Send(realtime.Event{
		Type:    realtime.EventError,
		Payload: realtime.ErrorPayload{Message: message},
	})
}
