package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

// mockClient creates a client without a real websocket connection.
func mockClient(hub *Hub, businessID uuid.UUID) *Client {
	return &Client{
		hub:        hub,
		businessID: businessID,
		send:       make(chan []byte, 256),
	}
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg := <-c.send:
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return ev
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive message")
	}
	return Event{}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.send:
		t.Fatal("client should not have received a message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)
	businessID := uuid.New()
	client := mockClient(hub, businessID)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if got := hub.ClientCount(businessID); got != 1 {
		t.Fatalf("expected 1 client, got %d", got)
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := startHub(t)
	businessID := uuid.New()
	client1 := mockClient(hub, businessID)
	client2 := mockClient(hub, businessID)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)
	if got := hub.ClientCount(businessID); got != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", got)
	}

	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.rooms[businessID] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
}

func TestBroadcastIsolatedPerBusiness(t *testing.T) {
	hub := startHub(t)
	shopA, shopB := uuid.New(), uuid.New()
	a1, a2 := mockClient(hub, shopA), mockClient(hub, shopA)
	b1 := mockClient(hub, shopB)

	for _, c := range []*Client{a1, a2, b1} {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	hub.Publish(shopA, EventPaymentRecorded, map[string]string{"order_id": "o-1", "amount": "500.00"})

	for _, c := range []*Client{a1, a2} {
		ev := receive(t, c)
		if ev.Type != EventPaymentRecorded {
			t.Errorf("expected %s, got %s", EventPaymentRecorded, ev.Type)
		}
		if string(ev.Payload) != `{"amount":"500.00","order_id":"o-1"}` {
			t.Errorf("unexpected payload %s", ev.Payload)
		}
	}
	expectNothing(t, b1)
}

func TestBroadcastToEmptyBusiness(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, uuid.New())
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToBusiness(uuid.New(), Event{Type: EventOrderCreated, Payload: json.RawMessage(`{}`)})
	expectNothing(t, client)
}

func TestSlowClientDropped(t *testing.T) {
	hub := startHub(t)
	businessID := uuid.New()
	slow := &Client{hub: hub, businessID: businessID, send: make(chan []byte)}
	hub.register <- slow
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToBusiness(businessID, Event{Type: EventOrderStatusChanged, Payload: json.RawMessage(`{}`)})
	time.Sleep(20 * time.Millisecond)

	if got := hub.ClientCount(businessID); got != 0 {
		t.Fatalf("expected slow client to be dropped, got %d clients", got)
	}
	if _, ok := <-slow.send; ok {
		t.Fatal("expected send channel to be closed")
	}
}

func TestBroadcastAfterStop(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	businessID := uuid.New()
	client := mockClient(hub, businessID)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	cancel()
	<-stopped

	if _, ok := <-client.send; ok {
		t.Fatal("expected client channel closed on shutdown")
	}

	// Fill the buffer, then one more must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.BroadcastToBusiness(businessID, Event{Type: EventPaymentDeleted})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked after hub stopped")
	}
}

func TestRegisterUnregisterAfterStop(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	businessID := uuid.New()
	client := mockClient(hub, businessID)
	if !hub.registerClient(client) {
		t.Fatal("expected running hub to accept client")
	}

	cancel()
	<-stopped

	done := make(chan bool)
	go func() {
		hub.unregisterClient(client)
		done <- hub.registerClient(mockClient(hub, businessID))
	}()
	select {
	case accepted := <-done:
		if accepted {
			t.Fatal("stopped hub must not accept clients")
		}
	case <-time.After(time.Second):
		t.Fatal("register/unregister blocked after hub stopped")
	}
	if got := hub.ClientCount(businessID); got != 0 {
		t.Fatalf("expected no clients after stop, got %d", got)
	}
}

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent(EventOrderCreated, struct {
		ID string `json:"id"`
	}{ID: "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Type != EventOrderCreated || string(ev.Payload) != `{"id":"abc"}` {
		t.Errorf("unexpected event %+v", ev)
	}

	if _, err := NewEvent(EventOrderCreated, make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}
