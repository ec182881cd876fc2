package notification

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	sendBuffer   = 256
	maxReadBytes = 512
)

// ErrHubStopped is returned by Serve once the hub no longer accepts connections.
var ErrHubStopped = errors.New("notification hub stopped")

// Event is the frame pushed to a connected user.
type Event struct {
	Type         string               `json:"type"`
	Notification *models.Notification `json:"notification,omitempty"`
	UnreadCount  *int64               `json:"unreadCount,omitempty"`
	Timestamp    time.Time            `json:"timestamp"`
}

type delivery struct {
	userID  uuid.UUID
	message []byte
}

type client struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

// Hub fans notifications out to every open connection of the addressed user.
type Hub struct {
	clients    map[uuid.UUID]map[*client]bool
	deliver    chan delivery
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.Mutex
	upgrader   websocket.Upgrader
	origins    map[string]bool
	log        logrus.FieldLogger
}

// NewHub builds a hub. Browsers may connect from the server's own host or from
// one of allowedOrigins, given as scheme://host[:port].
func NewHub(log logrus.FieldLogger, allowedOrigins ...string) *Hub {
	h := &Hub{
		clients:    make(map[uuid.UUID]map[*client]bool),
		deliver:    make(chan delivery, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		origins:    make(map[string]bool),
		log:        log,
	}
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			h.origins[strings.ToLower(o)] = true
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts requests without an Origin header (non-browser clients),
// same-host origins and the configured allow list.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return h.origins[strings.ToLower(u.Scheme+"://"+u.Host)]
}

// Run owns the client registry until Stop is called.
func (h *Hub) Run() {
	h.log.Info("notification hub started")
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[c.userID]; !ok {
				h.clients[c.userID] = make(map[*client]bool)
			}
			h.clients[c.userID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			h.drop(c)
			h.mu.Unlock()

		case d := <-h.deliver:
			h.mu.Lock()
			for c := range h.clients[d.userID] {
				select {
				case c.send <- d.message:
				default:
					h.drop(c)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for _, conns := range h.clients {
				for c := range conns {
					h.drop(c)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

// drop must be called with mu held.
func (h *Hub) drop(c *client) {
	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
}

// Connections reports how many sockets the user has open.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[userID])
}

// Publish queues an event for the user. It never blocks the caller; events for a full queue are dropped.
func (h *Hub) Publish(userID uuid.UUID, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal notification event")
		return
	}
	select {
	case h.deliver <- delivery{userID: userID, message: data}:
	default:
		h.log.WithField("user_id", userID).Warn("notification hub queue full, event dropped")
	}
}

// Serve upgrades the request and streams the user's events until the socket closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
	}
	welcome, _ := json.Marshal(Event{Type: "welcome", Timestamp: time.Now().UTC()})
	c.send <- welcome
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return ErrHubStopped
	}

	go c.writePump()
	go c.readPump()
	return nil
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxReadBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
