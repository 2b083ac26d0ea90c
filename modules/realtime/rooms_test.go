package realtime

import (
	"fmt"
	"sync"
	"testing"
)

// recorder captures events delivered to one connection, in order.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Send(ev Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) ofType(eventType string) []Event {
	var out []Event
	for _, ev := range r.all() {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func addConn(t *testing.T, reg *Registry, id, userID, username string) *recorder {
	t.Helper()

	rec := &recorder{}
	if _, err := reg.Register(NewSession(id, userID, username, rec)); err != nil {
		t.Fatalf("Register(%s) failed: %v", id, err)
	}
	return rec
}

func TestRoomJoinLeaveLifecycle(t *testing.T) {
	reg := NewRegistry()
	rooms := NewRoomManager(reg)
	addConn(t, reg, "c1", "alice", "Alice")
	addConn(t, reg, "c2", "bob", "Bob")

	rooms.Join("conv-1", "c1")
	rooms.Join("conv-1", "c2")
	if got := rooms.SubscriberCount("conv-1"); got != 2 {
		t.Errorf("expected 2 subscribers, got %d", got)
	}

	rooms.Leave("conv-1", "c1")
	if got := rooms.SubscriberCount("conv-1"); got != 1 {
		t.Errorf("expected 1 subscriber after leave, got %d", got)
	}

	// Leaving a room you are not in, or one that does not exist, is a no-op.
	rooms.Leave("conv-1", "c1")
	rooms.Leave("no-such-room", "c1")

	// Last leave deletes the room entry.
	rooms.Leave("conv-1", "c2")
	if got := rooms.RoomCount(); got != 0 {
		t.Errorf("expected empty room to be deleted, %d rooms remain", got)
	}
}

func TestRoomLeaveAll(t *testing.T) {
	reg := NewRegistry()
	rooms := NewRoomManager(reg)
	addConn(t, reg, "c1", "alice", "Alice")
	addConn(t, reg, "c2", "bob", "Bob")

	rooms.Join("conv-1", "c1")
	rooms.Join("conv-2", "c1")
	rooms.Join("conv-3", "c1")
	rooms.Join("conv-2", "c2")

	rooms.LeaveAll("c1")

	if got := rooms.RoomsOf("c1"); len(got) != 0 {
		t.Errorf("expected zero subscriptions after LeaveAll, got %v", got)
	}
	// conv-2 survives through c2; the rest are gone.
	if got := rooms.RoomCount(); got != 1 {
		t.Errorf("expected 1 surviving room, got %d", got)
	}
	if got := rooms.SubscriberCount("conv-2"); got != 1 {
		t.Errorf("expected c2 still subscribed to conv-2, got %d subscribers", got)
	}
}

func TestRoomJoinVisibleUnderChurn(t *testing.T) {
	reg := NewRegistry()
	rooms := NewRoomManager(reg)
	addConn(t, reg, "stable", "alice", "Alice")
	addConn(t, reg, "churn", "bob", "Bob")

	// A second connection joins and leaves the same room continuously, so
	// the room entry is deleted and recreated under the joiner's feet. A
	// completed Join must always leave the connection visible as a
	// subscriber, never added to a room object that was dropped from the
	// map in between.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			rooms.Join("conv-1", "churn")
			rooms.Leave("conv-1", "churn")
		}
	}()

	for i := 0; i < 2000; i++ {
		rooms.Join("conv-1", "stable")
		if got := rooms.SubscriberCount("conv-1"); got < 1 {
			t.Fatalf("iteration %d: joined connection not counted, %d subscribers", i, got)
		}
		if got := rooms.RoomsOf("stable"); len(got) != 1 || got[0] != "conv-1" {
			t.Fatalf("iteration %d: joined connection not visible, rooms %v", i, got)
		}
		rooms.Leave("conv-1", "stable")
	}
	<-done
}

func TestBroadcastExclusion(t *testing.T) {
	reg := NewRegistry()
	rooms := NewRoomManager(reg)
	a := addConn(t, reg, "c1", "alice", "Alice")
	b := addConn(t, reg, "c2", "bob", "Bob")
	outsider := addConn(t, reg, "c3", "carol", "Carol")

	rooms.Join("conv-1", "c1")
	rooms.Join("conv-1", "c2")

	rooms.Broadcast("conv-1", Event{Type: "test"}, "c1")

	if got := len(a.all()); got != 0 {
		t.Errorf("excluded connection received %d events", got)
	}
	if got := len(b.all()); got != 1 {
		t.Errorf("expected subscriber to receive 1 event, got %d", got)
	}
	if got := len(outsider.all()); got != 0 {
		t.Errorf("non-subscriber received %d events", got)
	}
}

func TestBroadcastToUnknownRoom(t *testing.T) {
	reg := NewRegistry()
	rooms := NewRoomManager(reg)

	// Must not panic or create the room.
	rooms.Broadcast("no-such-room", Event{Type: "test"}, "")
	if got := rooms.RoomCount(); got != 0 {
		t.Errorf("broadcast created a room: %d", got)
	}
}

func TestBroadcastOrderingPerSubscriber(t *testing.T) {
	reg := NewRegistry()
	rooms := NewRoomManager(reg)

	subscribers := make([]*recorder, 5)
	for i := range subscribers {
		id := fmt.Sprintf("c%d", i)
		subscribers[i] = addConn(t, reg, id, fmt.Sprintf("user%d", i), fmt.Sprintf("User%d", i))
		rooms.Join("conv-1", id)
	}

	const n = 100

	// Concurrent broadcasters: each event carries its emission order as
	// observed under the room lock, so every subscriber must see a
	// monotonically increasing sequence.
	var seq int
	var seqMu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seqMu.Lock()
			defer seqMu.Unlock()
			seq++
			rooms.Broadcast("conv-1", Event{Type: "seq", Payload: seq}, "")
		}()
	}
	wg.Wait()

	for i, sub := range subscribers {
		events := sub.all()
		if len(events) != n {
			t.Fatalf("subscriber %d received %d of %d events", i, len(events), n)
		}
		prev := 0
		for j, ev := range events {
			got := ev.Payload.(int)
			if got <= prev {
				t.Fatalf("subscriber %d observed out-of-order event at %d: %d after %d", i, j, got, prev)
			}
			prev = got
		}
	}
}
