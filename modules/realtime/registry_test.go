package realtime

import (
	"errors"
	"sort"
	"testing"
)

type nopSender struct{}

func (nopSender) Send(Event) bool { return true }

func newSession(id, userID, username string) *Session {
	return NewSession(id, userID, username, nopSender{})
}

func TestRegistryPresenceTransitions(t *testing.T) {
	reg := NewRegistry()

	if reg.IsOnline("alice") {
		t.Fatal("expected alice offline before any connection")
	}

	wentOnline, err := reg.Register(newSession("c1", "alice", "Alice"))
	if err != nil {
		t.Fatalf("Register(c1) failed: %v", err)
	}
	if !wentOnline {
		t.Error("expected first connection to report online transition")
	}
	if !reg.IsOnline("alice") {
		t.Error("expected alice online after first connection")
	}

	// Second device: no new online transition.
	wentOnline, err = reg.Register(newSession("c2", "alice", "Alice"))
	if err != nil {
		t.Fatalf("Register(c2) failed: %v", err)
	}
	if wentOnline {
		t.Error("second connection must not report online transition")
	}

	conns := reg.ConnectionsOf("alice")
	sort.Strings(conns)
	if len(conns) != 2 || conns[0] != "c1" || conns[1] != "c2" {
		t.Errorf("unexpected connections: %v", conns)
	}

	// Dropping one of two devices keeps the user online.
	sess, wentOffline := reg.Deregister("c1")
	if sess == nil || sess.ID != "c1" {
		t.Fatalf("expected deregistered session c1, got %+v", sess)
	}
	if wentOffline {
		t.Error("offline transition must not fire while c2 is live")
	}
	if !reg.IsOnline("alice") {
		t.Error("expected alice still online with one connection left")
	}

	// Dropping the last device fires the offline transition.
	_, wentOffline = reg.Deregister("c2")
	if !wentOffline {
		t.Error("expected offline transition when last connection dropped")
	}
	if reg.IsOnline("alice") {
		t.Error("expected alice offline after last connection dropped")
	}
}

func TestRegistryDuplicateConnection(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Register(newSession("c1", "alice", "Alice")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err := reg.Register(newSession("c1", "bob", "Bob"))
	if !errors.Is(err, ErrDuplicateConnection) {
		t.Errorf("expected ErrDuplicateConnection, got %v", err)
	}

	// The original owner must be untouched.
	if got := reg.Get("c1"); got == nil || got.UserID != "alice" {
		t.Errorf("duplicate register corrupted the original session: %+v", got)
	}
}

func TestRegistryDoubleDeregister(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Register(newSession("c1", "alice", "Alice")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if sess, _ := reg.Deregister("c1"); sess == nil {
		t.Fatal("first deregister should return the session")
	}

	// Second deregister is a tolerated no-op.
	sess, wentOffline := reg.Deregister("c1")
	if sess != nil || wentOffline {
		t.Errorf("double deregister should be a no-op, got sess=%+v wentOffline=%v", sess, wentOffline)
	}

	if sess, wentOffline := reg.Deregister("never-existed"); sess != nil || wentOffline {
		t.Error("deregister of unknown connection should be a no-op")
	}
}

func TestRegistryCounts(t *testing.T) {
	reg := NewRegistry()

	for _, s := range []*Session{
		newSession("a1", "alice", "Alice"),
		newSession("a2", "alice", "Alice"),
		newSession("b1", "bob", "Bob"),
	} {
		if _, err := reg.Register(s); err != nil {
			t.Fatalf("Register(%s) failed: %v", s.ID, err)
		}
	}

	if got := reg.ConnectionCount(); got != 3 {
		t.Errorf("expected 3 connections, got %d", got)
	}
	if got := reg.OnlineUserCount(); got != 2 {
		t.Errorf("expected 2 online users, got %d", got)
	}
	if got := len(reg.Sessions()); got != 3 {
		t.Errorf("expected 3 sessions in snapshot, got %d", got)
	}
}
