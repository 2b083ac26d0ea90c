package chatstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/example/chat-backend/domain/chat"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *StoreService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&domain.Conversation{}, &domain.Participant{}, &domain.Message{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return NewStoreService(NewRepository(db))
}

func mustCreateConversation(t *testing.T, s *StoreService, name, convType, creator string, members []string) *domain.Conversation {
	t.Helper()

	conv, err := s.CreateConversation(context.Background(), name, convType, creator, members)
	if err != nil {
		t.Fatalf("CreateConversation(%q) failed: %v", name, err)
	}
	return conv
}

func TestCreateConversation(t *testing.T) {
	tests := []struct {
		name      string
		convName  string
		convType  string
		creator   string
		members   []string
		wantErr   error
	}{
		{
			name:     "valid group",
			convName: "engineering",
			convType: domain.ConversationGroup,
			creator:  "alice",
			members:  []string{"bob", "carol"},
		},
		{
			name:     "valid direct",
			convName: "alice-bob",
			convType: domain.ConversationDirect,
			creator:  "alice",
			members:  []string{"bob"},
		},
		{
			name:     "empty name",
			convName: "",
			convType: domain.ConversationGroup,
			creator:  "alice",
			members:  []string{"bob"},
			wantErr:  ErrNameRequired,
		},
		{
			name:     "name too long",
			convName: strings.Repeat("x", MaxConversationNameLength+1),
			convType: domain.ConversationGroup,
			creator:  "alice",
			members:  []string{"bob"},
			wantErr:  ErrNameTooLong,
		},
		{
			name:     "invalid type",
			convName: "room",
			convType: "broadcast",
			creator:  "alice",
			members:  []string{"bob"},
			wantErr:  ErrInvalidType,
		},
		{
			name:     "no other participants",
			convName: "lonely",
			convType: domain.ConversationGroup,
			creator:  "alice",
			members:  nil,
			wantErr:  ErrNoParticipants,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)

			conv, err := svc.CreateConversation(context.Background(), tt.convName, tt.convType, tt.creator, tt.members)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if conv.ID == "" {
				t.Error("expected conversation ID to be set")
			}

			role, err := svc.ParticipantRole(context.Background(), tt.creator, conv.ID)
			if err != nil {
				t.Fatalf("ParticipantRole(creator) failed: %v", err)
			}
			if role != domain.RoleAdmin {
				t.Errorf("expected creator role %q, got %q", domain.RoleAdmin, role)
			}
			for _, member := range tt.members {
				role, err := svc.ParticipantRole(context.Background(), member, conv.ID)
				if err != nil {
					t.Fatalf("ParticipantRole(%q) failed: %v", member, err)
				}
				if role != domain.RoleMember {
					t.Errorf("expected member role %q, got %q", domain.RoleMember, role)
				}
			}
		})
	}
}

func TestParticipantManagement(t *testing.T) {
	ctx := context.Background()

	t.Run("admin can add participants", func(t *testing.T) {
		svc := newTestService(t)
		conv := mustCreateConversation(t, svc, "room", domain.ConversationGroup, "alice", []string{"bob"})

		if err := svc.AddParticipant(ctx, conv.ID, "alice", "carol", domain.RoleMember); err != nil {
			t.Fatalf("AddParticipant failed: %v", err)
		}

		role, err := svc.ParticipantRole(ctx, "carol", conv.ID)
		if err != nil {
			t.Fatalf("ParticipantRole failed: %v", err)
		}
		if role != domain.RoleMember {
			t.Errorf("expected role %q, got %q", domain.RoleMember, role)
		}
	})

	t.Run("non-admin cannot add participants", func(t *testing.T) {
		svc := newTestService(t)
		conv := mustCreateConversation(t, svc, "room", domain.ConversationGroup, "alice", []string{"bob"})

		err := svc.AddParticipant(ctx, conv.ID, "bob", "carol", domain.RoleMember)
		if !errors.Is(err, domain.ErrNotAdmin) {
			t.Errorf("expected ErrNotAdmin, got %v", err)
		}
	})

	t.Run("outsider cannot add participants", func(t *testing.T) {
		svc := newTestService(t)
		conv := mustCreateConversation(t, svc, "room", domain.ConversationGroup, "alice", []string{"bob"})

		err := svc.AddParticipant(ctx, conv.ID, "mallory", "carol", domain.RoleMember)
		if !errors.Is(err, domain.ErrNotAParticipant) {
			t.Errorf("expected ErrNotAParticipant, got %v", err)
		}
	})

	t.Run("duplicate add rejected", func(t *testing.T) {
		svc := newTestService(t)
		conv := mustCreateConversation(t, svc, "room", domain.ConversationGroup, "alice", []string{"bob"})

		err := svc.AddParticipant(ctx, conv.ID, "alice", "bob", domain.RoleMember)
		if !errors.Is(err, ErrAlreadyParticipant) {
			t.Errorf("expected ErrAlreadyParticipant, got %v", err)
		}
	})

	t.Run("user can leave", func(t *testing.T) {
		svc := newTestService(t)
		conv := mustCreateConversation(t, svc, "room", domain.ConversationGroup, "alice", []string{"bob"})

		if err := svc.RemoveParticipant(ctx, conv.ID, "bob", "bob"); err != nil {
			t.Fatalf("self-leave failed: %v", err)
		}
		if _, err := svc.ParticipantRole(ctx, "bob", conv.ID); !errors.Is(err, domain.ErrNotAParticipant) {
			t.Errorf("expected ErrNotAParticipant after leave, got %v", err)
		}
	})

	t.Run("admin can remove others", func(t *testing.T) {
		svc := newTestService(t)
		conv := mustCreateConversation(t, svc, "room", domain.ConversationGroup, "alice", []string{"bob"})

		if err := svc.RemoveParticipant(ctx, conv.ID, "alice", "bob"); err != nil {
			t.Fatalf("admin remove failed: %v", err)
		}
	})

	t.Run("member cannot remove others", func(t *testing.T) {
		svc := newTestService(t)
		conv := mustCreateConversation(t, svc, "room", domain.ConversationGroup, "alice", []string{"bob", "carol"})

		err := svc.RemoveParticipant(ctx, conv.ID, "bob", "carol")
		if !errors.Is(err, domain.ErrNotAdmin) {
			t.Errorf("expected ErrNotAdmin, got %v", err)
		}
	})
}

func TestInsertMessage(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
		msgType string
		wantErr error
	}{
		{name: "valid text", content: "hello there", msgType: domain.MessageText},
		{name: "valid image", content: "https://example.com/cat.png", msgType: domain.MessageImage},
		{name: "empty content", content: "", msgType: domain.MessageText, wantErr: ErrMessageEmpty},
		{name: "whitespace only", content: "   ", msgType: domain.MessageText, wantErr: ErrMessageEmpty},
		{name: "too long", content: strings.Repeat("a", MaxMessageLength+1), msgType: domain.MessageText, wantErr: ErrMessageTooLong},
		{name: "invalid type", content: "hi", msgType: "video", wantErr: ErrInvalidMessageType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			conv := mustCreateConversation(t, svc, "room", domain.ConversationGroup, "alice", []string{"bob"})

			msg, err := svc.InsertMessage(ctx, conv.ID, "alice", tt.content, tt.msgType)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.ID == "" {
				t.Error("expected message ID to be set")
			}
			if msg.CreatedAt.IsZero() {
				t.Error("expected CreatedAt to be set")
			}
		})
	}

	t.Run("unknown conversation", func(t *testing.T) {
		svc := newTestService(t)

		_, err := svc.InsertMessage(ctx, "no-such-conv", "alice", "hi", domain.MessageText)
		if !errors.Is(err, ErrConversationNotFound) {
			t.Errorf("expected ErrConversationNotFound, got %v", err)
		}
	})
}

func TestGetHistory(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	conv := mustCreateConversation(t, svc, "room", domain.ConversationGroup, "alice", []string{"bob"})

	var inserted []*domain.Message
	for _, content := range []string{"first", "second", "third", "fourth", "fifth"} {
		msg, err := svc.InsertMessage(ctx, conv.ID, "alice", content, domain.MessageText)
		if err != nil {
			t.Fatalf("InsertMessage(%q) failed: %v", content, err)
		}
		inserted = append(inserted, msg)
		// SQLite stores timestamps at millisecond granularity; keep ordering stable.
		time.Sleep(2 * time.Millisecond)
	}

	t.Run("chronological order", func(t *testing.T) {
		msgs, err := svc.GetHistory(ctx, conv.ID, 0, time.Time{})
		if err != nil {
			t.Fatalf("GetHistory failed: %v", err)
		}
		if len(msgs) != len(inserted) {
			t.Fatalf("expected %d messages, got %d", len(inserted), len(msgs))
		}
		for i := 1; i < len(msgs); i++ {
			if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
				t.Errorf("messages out of order at index %d", i)
			}
		}
		if msgs[0].Content != "first" || msgs[len(msgs)-1].Content != "fifth" {
			t.Errorf("unexpected ordering: first=%q last=%q", msgs[0].Content, msgs[len(msgs)-1].Content)
		}
	})

	t.Run("limit returns newest", func(t *testing.T) {
		msgs, err := svc.GetHistory(ctx, conv.ID, 2, time.Time{})
		if err != nil {
			t.Fatalf("GetHistory failed: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(msgs))
		}
		if msgs[0].Content != "fourth" || msgs[1].Content != "fifth" {
			t.Errorf("expected newest two in order, got %q, %q", msgs[0].Content, msgs[1].Content)
		}
	})

	t.Run("before cursor pages backwards", func(t *testing.T) {
		page, err := svc.GetHistory(ctx, conv.ID, 2, inserted[2].CreatedAt)
		if err != nil {
			t.Fatalf("GetHistory failed: %v", err)
		}
		if len(page) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(page))
		}
		if page[0].Content != "first" || page[1].Content != "second" {
			t.Errorf("expected older page in order, got %q, %q", page[0].Content, page[1].Content)
		}
	})

	t.Run("unknown conversation", func(t *testing.T) {
		_, err := svc.GetHistory(ctx, "no-such-conv", 0, time.Time{})
		if !errors.Is(err, ErrConversationNotFound) {
			t.Errorf("expected ErrConversationNotFound, got %v", err)
		}
	})
}

func TestSearchMessages(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	mine := mustCreateConversation(t, svc, "mine", domain.ConversationGroup, "alice", []string{"bob"})
	other := mustCreateConversation(t, svc, "other", domain.ConversationGroup, "carol", []string{"dave"})

	for _, m := range []struct {
		conv    *domain.Conversation
		sender  string
		content string
	}{
		{mine, "alice", "deploy the release tonight"},
		{mine, "bob", "lunch at noon?"},
		{other, "carol", "secret deploy plans"},
	} {
		if _, err := svc.InsertMessage(ctx, m.conv.ID, m.sender, m.content, domain.MessageText); err != nil {
			t.Fatalf("InsertMessage failed: %v", err)
		}
	}

	t.Run("only searches own conversations", func(t *testing.T) {
		msgs, err := svc.SearchMessages(ctx, "alice", "deploy", 10)
		if err != nil {
			t.Fatalf("SearchMessages failed: %v", err)
		}
		if len(msgs) != 1 {
			t.Fatalf("expected 1 result, got %d", len(msgs))
		}
		if msgs[0].Content != "deploy the release tonight" {
			t.Errorf("unexpected result: %q", msgs[0].Content)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		msgs, err := svc.SearchMessages(ctx, "alice", "zebra", 10)
		if err != nil {
			t.Fatalf("SearchMessages failed: %v", err)
		}
		if len(msgs) != 0 {
			t.Errorf("expected no results, got %d", len(msgs))
		}
	})
}

func TestListConversationsOrder(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	first := mustCreateConversation(t, svc, "first", domain.ConversationGroup, "alice", []string{"bob"})
	time.Sleep(2 * time.Millisecond)
	second := mustCreateConversation(t, svc, "second", domain.ConversationGroup, "alice", []string{"bob"})
	time.Sleep(2 * time.Millisecond)

	// Activity on the older conversation should float it to the top.
	if err := svc.TouchConversation(ctx, first.ID); err != nil {
		t.Fatalf("TouchConversation failed: %v", err)
	}

	convs, err := svc.ListConversations(ctx, "alice")
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].ID != first.ID || convs[1].ID != second.ID {
		t.Errorf("expected most recently active first, got %q then %q", convs[0].Name, convs[1].Name)
	}
}

func TestUpdatePreview(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	conv := mustCreateConversation(t, svc, "room", domain.ConversationGroup, "alice", []string{"bob"})

	if err := svc.UpdatePreview(ctx, conv.ID, "hello world"); err != nil {
		t.Fatalf("UpdatePreview failed: %v", err)
	}

	got, err := svc.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.LastPreview != "hello world" {
		t.Errorf("expected preview %q, got %q", "hello world", got.LastPreview)
	}

	// Widest preview a sender can produce: 50 four-byte runes plus the
	// ellipsis. The column must hold it without truncation.
	wide := strings.Repeat("\U0001F600", 50) + "..."
	if err := svc.UpdatePreview(ctx, conv.ID, wide); err != nil {
		t.Fatalf("UpdatePreview failed for wide preview: %v", err)
	}
	got, err = svc.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.LastPreview != wide {
		t.Errorf("wide preview mangled: got %d bytes, want %d", len(got.LastPreview), len(wide))
	}
}
