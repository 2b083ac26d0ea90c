package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/chat-backend/modules/api"
	"github.com/example/chat-backend/modules/auth"
	"github.com/example/chat-backend/modules/chatstore"
	"github.com/example/chat-backend/modules/realtime"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Chat Backend - Realtime Messaging over Fiber + EventBus ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	authModule := auth.NewModule()
	storeModule := chatstore.NewModule()
	realtimeModule := realtime.NewModule()
	apiModule := api.NewModule()

	// Inject the realtime core into the API module
	// (The router and registry are not exposed via ServiceContainer)
	apiModule.SetRealtime(realtimeModule)

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - auth: identity, tokens, status persistence (ServiceProviderModule)
	// - chatstore: conversations, participants, messages (ServiceProviderModule + EventConsumerModule)
	// - realtime: connection registry, rooms, fan-out (depends on auth + chatstore)
	// - api: Fiber HTTP/WebSocket server (depends on all of the above)
	app.Register(authModule)
	app.Register(storeModule)
	app.Register(realtimeModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Event Bus: NATS JetStream (internal pubsub)")
	log.Printf("  - NATS URL: %s", natsURL)
	log.Println("")
	log.Println("Event flow:")
	log.Println("  - MessageSent events -> chatstore module -> conversation previews")
	log.Println("  - StatusChanged events -> observability / future consumers")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                                    - Health check")
	log.Println("  POST   /api/v1/auth/register                      - Create account")
	log.Println("  POST   /api/v1/auth/login                         - Issue token pair")
	log.Println("  POST   /api/v1/auth/refresh                       - Rotate token pair")
	log.Println("  GET    /api/v1/me                                 - Current user")
	log.Println("  PUT    /api/v1/me/status                          - Update status")
	log.Println("  GET    /api/v1/conversations                      - List conversations")
	log.Println("  POST   /api/v1/conversations                      - Create conversation")
	log.Println("  GET    /api/v1/conversations/:id                  - Conversation details")
	log.Println("  POST   /api/v1/conversations/:id/participants     - Add participant")
	log.Println("  DELETE /api/v1/conversations/:id/participants/:u  - Remove participant")
	log.Println("  GET    /api/v1/conversations/:id/messages         - Message history")
	log.Println("  GET    /api/v1/messages/search?q=                 - Full-text search")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Connect with: ws://localhost:3000/ws?token=<access token>")
	log.Println("  Event types: join_conversation, leave_conversation, send_message,")
	log.Println("               typing_start, typing_stop, update_status")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
