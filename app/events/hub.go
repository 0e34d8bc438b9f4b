package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"postboard/app/models"
	"postboard/logger"
)

// Event types sent to subscribers
const (
	TypePostCreated    = "post.created"
	TypeCommentCreated = "comment.created"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
	readLimit    = 512
)

// Event is the JSON message pushed to every connected client
type Event struct {
	Type string       `json:"type"`
	Post *models.Post `json:"post"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans out post and comment events to websocket subscribers. A client
// that cannot keep up is disconnected instead of slowing the others down.
type Hub struct {
	clients  map[*client]struct{}
	mutex    sync.Mutex
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: log.WithComponent("events"),
	}
}

// ServeHTTP upgrades the request and keeps the subscription open until the
// peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debugw("Websocket upgrade failed", "error", err.Error())
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go h.writeLoop(c)

	// Subscribers only listen; anything they send is discarded.
	conn.SetReadLimit(readLimit)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
}

func (h *Hub) PostCreated(post *models.Post) {
	h.Broadcast(Event{Type: TypePostCreated, Post: post})
}

func (h *Hub) CommentCreated(post *models.Post) {
	h.Broadcast(Event{Type: TypeCommentCreated, Post: post})
}

// Broadcast encodes the event once and queues it for every client
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Errorw("Failed to encode event", "type", event.Type, "error", err.Error())
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warnw("Dropping slow websocket client", "remote", c.conn.RemoteAddr().String())
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected subscribers
func (h *Hub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) register(c *client) {
	h.mutex.Lock()
	h.clients[c] = struct{}{}
	h.mutex.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mutex.Lock()
	h.removeLocked(c)
	h.mutex.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.unregister(c)
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
