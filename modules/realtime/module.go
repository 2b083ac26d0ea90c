package realtime

import (
	"context"
	"log"

	"github.com/example/chat-backend/events"
	"github.com/example/chat-backend/modules/auth"
	"github.com/example/chat-backend/modules/chatstore"
	"github.com/go-monolith/mono"
)

// Module hosts the conversation fan-out and presence core: the connection
// registry, room manager, membership validator, event router, and presence
// broadcaster.
type Module struct {
	registry  *Registry
	rooms     *RoomManager
	validator *MembershipValidator
	presence  *PresenceBroadcaster
	router    *Router

	authPort  auth.AuthPort
	storePort chatstore.StorePort
	eventBus  mono.EventBus
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)
var _ mono.EventBusAwareModule = (*Module)(nil)
var _ mono.EventEmitterModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the realtime module.
func NewModule() *Module {
	return &Module{}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "realtime"
}

// Dependencies declares the modules this one consumes services from.
func (m *Module) Dependencies() []string {
	return []string{"auth", "chatstore"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authPort = auth.NewAuthAdapter(container)
	case "chatstore":
		m.storePort = chatstore.NewStoreAdapter(container)
	}
}

// SetEventBus receives the application event bus.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
		events.StatusChangedV1.ToBase(),
	}
}

// Start assembles the fan-out core.
func (m *Module) Start(_ context.Context) error {
	m.registry = NewRegistry()
	m.rooms = NewRoomManager(m.registry)
	m.validator = NewMembershipValidator(m.storePort)
	m.presence = NewPresenceBroadcaster(m.registry)
	m.presence.SetEventBus(m.eventBus)
	m.router = NewRouter(m.registry, m.rooms, m.validator, m.presence, m.storePort, m.authPort)
	m.router.SetEventBus(m.eventBus)

	log.Println("[realtime] Module started")
	return nil
}

// Stop shuts down the module. Connection teardown is driven by the transport
// layer closing each connection, which calls HandleDisconnect.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[realtime] Module stopped")
	return nil
}

// Router exposes the event router to the transport layer.
func (m *Module) Router() *Router {
	return m.router
}

// Registry exposes the connection registry for presence queries.
func (m *Module) Registry() *Registry {
	return m.registry
}

// Health reports the live connection, user, and room counts.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.registry == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "not started",
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections":  m.registry.ConnectionCount(),
			"online_users": m.registry.OnlineUserCount(),
			"active_rooms": m.rooms.RoomCount(),
		},
	}
}
