package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
)

var _ adapter.ChannelSender = (*Hub)(nil)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is handled at the HTTP level
	},
}

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub keeps the open realtime connections per user and pushes notifications to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	log     *zerolog.Logger
}

func NewHub(logger *zerolog.Logger) *Hub {
	l := logger.With().Str("component", "realtime").Logger()
	return &Hub{clients: make(map[string]map[*client]struct{}), log: &l}
}

func (h *Hub) Channel() model.NotificationChannel { return model.ChannelRealtime }

type realtimeMessage struct {
	Type          model.NotificationEvent `json:"type"`
	TransactionID string                  `json:"transactionId"`
	Title         string                  `json:"title"`
	Body          string                  `json:"body"`
	RedirectURL   string                  `json:"redirectUrl,omitempty"`
	Data          map[string]string       `json:"data,omitempty"`
}

// Send queues the message on every open connection of the user. A user
// without connections yields domain.ErrNoRecipient.
func (h *Hub) Send(ctx context.Context, n *model.Notification) error {
	payload, err := json.Marshal(realtimeMessage{
		Type:          n.Event,
		TransactionID: n.TransactionID,
		Title:         n.Title,
		Body:          n.Body,
		RedirectURL:   n.RedirectURL,
		Data:          n.Data,
	})
	if err != nil {
		return err
	}

	// sends happen under the read lock so remove cannot close a channel mid-send
	h.mu.RLock()
	set := h.clients[n.UserID]
	delivered := len(set)
	var slow []*client
	for c := range set {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.remove(c)
	}
	if delivered == 0 {
		return domain.ErrNoRecipient
	}
	return nil
}

// Connections returns the number of open connections of userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Serve upgrades the request and keeps the connection registered until it closes.
// The caller authenticates the request first.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)
	h.log.Debug().Str("user_id", userID).Msg("realtime client connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
}

// readLoop only drains control frames; clients never send data.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
