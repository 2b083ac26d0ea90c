package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domain "github.com/example/chat-backend/domain/chat"
)

// checkerFunc adapts a function to the ParticipantChecker interface.
type checkerFunc func(ctx context.Context, userID, conversationID string) (bool, string, error)

func (f checkerFunc) IsParticipant(ctx context.Context, userID, conversationID string) (bool, string, error) {
	return f(ctx, userID, conversationID)
}

func TestCheckParticipant(t *testing.T) {
	storeErr := errors.New("store down")

	tests := []struct {
		name        string
		participant bool
		role        string
		storeErr    error
		wantRole    string
		wantErr     error
	}{
		{name: "member", participant: true, role: domain.RoleMember, wantRole: domain.RoleMember},
		{name: "admin", participant: true, role: domain.RoleAdmin, wantRole: domain.RoleAdmin},
		{name: "outsider", wantErr: domain.ErrNotAParticipant},
		{name: "store failure", storeErr: storeErr, wantErr: storeErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewMembershipValidator(checkerFunc(func(context.Context, string, string) (bool, string, error) {
				return tt.participant, tt.role, tt.storeErr
			}))

			role, err := v.CheckParticipant(context.Background(), "alice", "conv-1")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckParticipant() error = %v, want %v", err, tt.wantErr)
			}
			if role != tt.wantRole {
				t.Errorf("CheckParticipant() role = %q, want %q", role, tt.wantRole)
			}
		})
	}
}

func TestCheckAdmin(t *testing.T) {
	tests := []struct {
		name        string
		participant bool
		role        string
		wantErr     error
	}{
		{name: "admin", participant: true, role: domain.RoleAdmin},
		{name: "member is not admin", participant: true, role: domain.RoleMember, wantErr: domain.ErrNotAdmin},
		{name: "outsider", wantErr: domain.ErrNotAParticipant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewMembershipValidator(checkerFunc(func(context.Context, string, string) (bool, string, error) {
				return tt.participant, tt.role, nil
			}))

			if err := v.CheckAdmin(context.Background(), "alice", "conv-1"); !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckAdmin() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckParticipantCollapsesConcurrentChecks(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})

	v := NewMembershipValidator(checkerFunc(func(context.Context, string, string) (bool, string, error) {
		if calls.Add(1) == 1 {
			close(entered)
		}
		<-release
		return true, domain.RoleMember, nil
	}))

	const n = 10
	results := make([]error, n)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, results[0] = v.CheckParticipant(context.Background(), "alice", "conv-1")
	}()
	<-entered

	// The store round-trip is in flight; every check for the same user and
	// conversation arriving now must share its result.
	for i := 1; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = v.CheckParticipant(context.Background(), "alice", "conv-1")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("store consulted %d times, want 1", got)
	}
	for i, err := range results {
		if err != nil {
			t.Errorf("caller %d: CheckParticipant() error = %v", i, err)
		}
	}
}
