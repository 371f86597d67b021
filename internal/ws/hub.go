package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/silai-boutique/api/internal/metrics"
	"go.uber.org/zap"
)

// Event types published after a committed change.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventPaymentRecorded    = "payment.recorded"
	EventPaymentDeleted     = "payment.deleted"
)

// Event is a message broadcast to every client of one business.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event.
func NewEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: raw}, nil
}

type businessEvent struct {
	BusinessID uuid.UUID
	Event      Event
}

// Hub keeps one room of clients per business.
type Hub struct {
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *businessEvent
	done       chan struct{}

	log *zap.Logger
	mu  sync.RWMutex
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *businessEvent, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
// Start it with go hub.Run(ctx).
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.businessID] == nil {
				h.rooms[client.businessID] = make(map[*Client]bool)
			}
			h.rooms[client.businessID][client] = true
			h.mu.Unlock()
			metrics.WebSocketClients.Inc()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.log.Error("marshal ws event", zap.String("type", event.Event.Type), zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.BusinessID] {
				if !client.wants(event.Event.Type) {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Slow consumer.
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops client from its room. Caller holds h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.businessID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	metrics.WebSocketClients.Dec()
	if len(clients) == 0 {
		delete(h.rooms, client.businessID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.remove(client)
		}
	}
}

// registerClient hands c to the hub, or drops it once the hub has stopped.
// It reports whether the hub accepted the client.
func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// unregisterClient removes c from its room. After the hub has stopped every
// room is already closed, so it returns immediately.
func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastToBusiness queues event for every client of businessID. It is a
// no-op once the hub has stopped.
func (h *Hub) BroadcastToBusiness(businessID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &businessEvent{BusinessID: businessID, Event: event}:
	case <-h.done:
	}
}

// Publish builds and broadcasts an event, logging marshal failures.
func (h *Hub) Publish(businessID uuid.UUID, eventType string, payload interface{}) {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		h.log.Error("build ws event", zap.String("type", eventType), zap.Error(err))
		return
	}
	h.BroadcastToBusiness(businessID, event)
}

// ClientCount returns the number of clients connected for businessID.
func (h *Hub) ClientCount(businessID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[businessID])
}
