package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/silai-boutique/api/internal/auth"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// KnownEvents lists the event types a client may subscribe to.
var KnownEvents = []string{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventPaymentRecorded,
	EventPaymentDeleted,
}

// Client is one websocket connection subscribed to a business. An empty
// events set means every event type.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	businessID uuid.UUID
	userID     uuid.UUID
	events     map[string]bool
	send       chan []byte
}

func (c *Client) wants(eventType string) bool {
	return len(c.events) == 0 || c.events[eventType]
}

// Endpoint serves GET /ws/orders. The caller authenticates with ?token= and
// may narrow the stream with ?events=order.created,payment.recorded.
type Endpoint struct {
	hub      *Hub
	secret   string
	upgrader websocket.Upgrader
}

// NewEndpoint accepts upgrades from the given origins. Requests without an
// Origin header (non-browser clients) and a "*" entry are always accepted.
func NewEndpoint(hub *Hub, secret string, origins []string) *Endpoint {
	return &Endpoint{
		hub:    hub,
		secret: secret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || lo.Contains(origins, "*") {
			return true
		}
		return lo.ContainsBy(origins, func(o string) bool { return strings.EqualFold(o, origin) })
	}
}

// parseEvents returns the requested subscription set, or the first unknown
// event type.
func parseEvents(raw string) (map[string]bool, string) {
	names := lo.Compact(lo.Map(strings.Split(raw, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
	for _, n := range names {
		if !lo.Contains(KnownEvents, n) {
			return nil, n
		}
	}
	return lo.SliceToMap(names, func(n string) (string, bool) { return n, true }), ""
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ValidateToken(e.secret, tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if claims.BusinessID == uuid.Nil {
		http.Error(w, "token is not bound to a business", http.StatusForbidden)
		return
	}
	events, unknown := parseEvents(r.URL.Query().Get("events"))
	if unknown != "" {
		http.Error(w, "unknown event type "+unknown, http.StatusBadRequest)
		return
	}

	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.hub.log.Warn("websocket upgrade", zap.Error(err))
		return
	}

	client := &Client{
		hub:        e.hub,
		conn:       conn,
		businessID: claims.BusinessID,
		userID:     claims.UserID,
		events:     events,
		send:       make(chan []byte, sendBuffer),
	}
	if !e.hub.registerClient(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")) //nolint:errcheck
		conn.Close()
		return
	}
	e.hub.log.Debug("websocket connected",
		zap.String("business_id", claims.BusinessID.String()),
		zap.String("user_id", claims.UserID.String()),
		zap.Strings("events", lo.Keys(events)))

	go client.writeLoop()
	go client.readLoop()
}

// readLoop discards inbound frames and unregisters on disconnect.
func (c *Client) readLoop() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read",
					zap.String("business_id", c.businessID.String()),
					zap.String("user_id", c.userID.String()),
					zap.Error(err))
			}
			return
		}
	}
}

// writeLoop drains send and pings until the hub closes the channel.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		var (
			kind    int
			payload []byte
		)
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")) //nolint:errcheck
				return
			}
			kind, payload = websocket.TextMessage, message
		case <-ticker.C:
			kind = websocket.PingMessage
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
		if err := c.conn.WriteMessage(kind, payload); err != nil {
			return
		}
	}
}
