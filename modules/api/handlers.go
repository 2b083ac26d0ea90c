package api

import (
	"errors"
	"strconv"
	"time"

	domain "github.com/example/chat-backend/domain/chat"
	"github.com/example/chat-backend/modules/chatstore"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
	defaultSearchLimit  = 50
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes() {
	// Health check
	m.app.Get("/health", m.healthHandler)

	// WebSocket endpoint: credential is verified before the upgrade
	// completes, so an unauthenticated client never gets a connection.
	m.app.Use("/ws", m.wsUpgradeGuard)
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	// REST API v1
	v1 := m.app.Group("/api/v1")

	// Public auth endpoints
	authGroup := v1.Group("/auth")
	authGroup.Post("/register", m.register)
	authGroup.Post("/login", m.login)
	authGroup.Post("/refresh", m.refresh)

	// Protected endpoints: everything under /api/v1 registered from here on
	// requires a valid bearer token.
	v1.Use(AuthMiddleware(m.authAdapter))
	v1.Get("/me", m.getMe)
	v1.Put("/me/status", m.updateStatus)

	v1.Get("/conversations", m.listConversations)
	v1.Post("/conversations", m.createConversation)
	v1.Get("/conversations/:id", m.getConversation)
	v1.Post("/conversations/:id/participants", m.addParticipant)
	v1.Delete("/conversations/:id/participants/:userId", m.removeParticipant)
	v1.Get("/conversations/:id/messages", m.getHistory)
	v1.Get("/messages/search", m.searchMessages)
}

// claimsFrom returns the authenticated user's claims stored by AuthMiddleware.
func claimsFrom(c *fiber.Ctx) *domain.Claims {
	return c.Locals(UserContextKey).(*domain.Claims)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	details := map[string]any{
		"module": "api",
	}
	if reg := m.rt.Registry(); reg != nil {
		details["connected_clients"] = reg.ConnectionCount()
		details["online_users"] = reg.OnlineUserCount()
	}
	return c.JSON(HealthResponse{
		Status:  "healthy",
		Details: details,
	})
}

// register handles POST /api/v1/auth/register.
func (m *APIModule) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := m.authAdapter.Register(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "registration_failed",
			Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
}

// login handles POST /api/v1/auth/login.
func (m *APIModule) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	pair, err := m.authAdapter.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "login_failed",
			Message: "Invalid email or password",
		})
	}

	return c.JSON(toTokenResponse(pair))
}

// refresh handles POST /api/v1/auth/refresh.
func (m *APIModule) refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	pair, err := m.authAdapter.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "refresh_failed",
			Message: "Invalid or expired refresh token",
		})
	}

	return c.JSON(toTokenResponse(pair))
}

// getMe handles GET /api/v1/me.
func (m *APIModule) getMe(c *fiber.Ctx) error {
	claims := claimsFrom(c)

	user, err := m.authAdapter.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "User not found",
		})
	}

	return c.JSON(toUserResponse(user))
}

// updateStatus handles PUT /api/v1/me/status.
func (m *APIModule) updateStatus(c *fiber.Ctx) error {
	claims := claimsFrom(c)

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := m.authAdapter.SetUserStatus(c.UserContext(), claims.UserID, req.Status, time.Now()); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "update_failed",
			Message: err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// listConversations handles GET /api/v1/conversations.
func (m *APIModule) listConversations(c *fiber.Ctx) error {
	claims := claimsFrom(c)

	convs, err := m.storeAdapter.ListConversations(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to list conversations",
		})
	}

	response := ConversationListResponse{
		Conversations: make([]ConversationResponse, 0, len(convs)),
	}
	for _, conv := range convs {
		response.Conversations = append(response.Conversations, toConversationResponse(conv))
	}
	return c.JSON(response)
}

// createConversation handles POST /api/v1/conversations.
func (m *APIModule) createConversation(c *fiber.Ctx) error {
	claims := claimsFrom(c)

	var req CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	conv, err := m.storeAdapter.CreateConversation(c.UserContext(), req.Name, req.Type, claims.UserID, req.MemberIDs)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "create_failed",
			Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(toConversationResponse(conv))
}

// getConversation handles GET /api/v1/conversations/:id.
func (m *APIModule) getConversation(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	conversationID := c.Params("id")

	if err := m.requireParticipant(c, claims.UserID, conversationID); err != nil {
		return err
	}

	conv, err := m.storeAdapter.GetConversation(c.UserContext(), conversationID)
	if err != nil {
		return m.storeError(c, err)
	}
	return c.JSON(toConversationResponse(conv))
}

// addParticipant handles POST /api/v1/conversations/:id/participants.
func (m *APIModule) addParticipant(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	conversationID := c.Params("id")

	var req AddParticipantRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.UserID == "" {
		return badRequest(c, "user_id is required")
	}
	role := req.Role
	if role == "" {
		role = domain.RoleMember
	}

	if err := m.storeAdapter.AddParticipant(c.UserContext(), conversationID, claims.UserID, req.UserID, role); err != nil {
		return m.storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// removeParticipant handles DELETE /api/v1/conversations/:id/participants/:userId.
func (m *APIModule) removeParticipant(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	conversationID := c.Params("id")
	userID := c.Params("userId")

	if err := m.storeAdapter.RemoveParticipant(c.UserContext(), conversationID, claims.UserID, userID); err != nil {
		return m.storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// getHistory handles GET /api/v1/conversations/:id/messages.
func (m *APIModule) getHistory(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	conversationID := c.Params("id")

	if err := m.requireParticipant(c, claims.UserID, conversationID); err != nil {
		return err
	}

	limit := defaultHistoryLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxHistoryLimit {
			limit = parsed
		}
	}
	var before time.Time
	if b := c.Query("before"); b != "" {
		parsed, err := time.Parse(time.RFC3339, b)
		if err != nil {
			return badRequest(c, "Invalid before timestamp, use RFC 3339")
		}
		before = parsed
	}

	messages, err := m.storeAdapter.GetHistory(c.UserContext(), conversationID, limit, before)
	if err != nil {
		return m.storeError(c, err)
	}

	response := HistoryResponse{
		ConversationID: conversationID,
		Messages:       make([]MessageResponse, 0, len(messages)),
	}
	for _, msg := range messages {
		response.Messages = append(response.Messages, toMessageResponse(msg))
	}
	return c.JSON(response)
}

// searchMessages handles GET /api/v1/messages/search.
func (m *APIModule) searchMessages(c *fiber.Ctx) error {
	claims := claimsFrom(c)

	query := c.Query("q")
	if query == "" {
		return badRequest(c, "Query parameter q is required")
	}
	limit := defaultSearchLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxHistoryLimit {
			limit = parsed
		}
	}

	messages, err := m.storeAdapter.SearchMessages(c.UserContext(), claims.UserID, query, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "search_failed",
			Message: "Failed to search messages",
		})
	}

	response := SearchResponse{
		Query:    query,
		Messages: make([]MessageResponse, 0, len(messages)),
	}
	for _, msg := range messages {
		response.Messages = append(response.Messages, toMessageResponse(msg))
	}
	return c.JSON(response)
}

// requireParticipant rejects the request unless the user belongs to the
// conversation.
func (m *APIModule) requireParticipant(c *fiber.Ctx, userID, conversationID string) error {
	participant, _, err := m.storeAdapter.IsParticipant(c.UserContext(), userID, conversationID)
	if err != nil {
		return m.storeError(c, err)
	}
	if !participant {
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: "You are not a participant of this conversation",
		})
	}
	return nil
}

// storeError maps store sentinels to HTTP status codes.
func (m *APIModule) storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, chatstore.ErrConversationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Conversation not found",
		})
	case errors.Is(err, domain.ErrNotAParticipant):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: "You are not a participant of this conversation",
		})
	case errors.Is(err, domain.ErrNotAdmin):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: "Admin role required",
		})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "request_failed",
			Message: err.Error(),
		})
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "invalid_request",
		Message: message,
	})
}

func toUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Status:    user.Status,
		LastSeen:  user.LastSeen,
		CreatedAt: user.CreatedAt,
	}
}

func toTokenResponse(pair *domain.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenType:    pair.TokenType,
	}
}

func toConversationResponse(conv *domain.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:           conv.ID,
		Name:         conv.Name,
		Type:         conv.Type,
		LastActivity: conv.LastActivity,
		LastPreview:  conv.LastPreview,
		CreatedAt:    conv.CreatedAt,
	}
}

func toMessageResponse(msg *domain.Message) MessageResponse {
	return MessageResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		Type:           msg.Type,
		CreatedAt:      msg.CreatedAt,
	}
}
