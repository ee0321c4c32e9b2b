// Package hub fans alert notices out to websocket watchers of a session.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xiaot623/seawatch/internal/domain"
)

const sendBuffer = 64

// Connection represents a single watcher.
type Connection struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
	mu        sync.Mutex
}

// sessionMessage is a payload addressed to every watcher of a session.
type sessionMessage struct {
	sessionID string
	data      []byte
}

// Hub tracks watchers per session.
type Hub struct {
	connections map[string]*Connection
	sessions    map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan sessionMessage
	done       chan struct{}

	mu sync.RWMutex
}

// New creates a Hub. Call Run to start it.
func New() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan sessionMessage, 256),
		done:        make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, conn := range h.connections {
				close(conn.Send)
				delete(h.connections, id)
			}
			h.sessions = make(map[string]map[string]bool)
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if h.sessions[conn.SessionID] == nil {
				h.sessions[conn.SessionID] = make(map[string]bool)
			}
			h.sessions[conn.SessionID][conn.ID] = true
			h.mu.Unlock()
			slog.Debug("alert watcher registered", "conn_id", conn.ID, "session_id", conn.SessionID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				if ids := h.sessions[conn.SessionID]; ids != nil {
					delete(ids, conn.ID)
					if len(ids) == 0 {
						delete(h.sessions, conn.SessionID)
					}
				}
				close(conn.Send)
			}
			h.mu.Unlock()
			slog.Debug("alert watcher unregistered", "conn_id", conn.ID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for connID := range h.sessions[msg.sessionID] {
				conn := h.connections[connID]
				select {
				case conn.Send <- msg.data:
				default:
					slog.Warn("alert watcher buffer full, dropping connection", "conn_id", connID)
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection wraps ws as a watcher of sessionID.
func (h *Hub) NewConnection(ws *websocket.Conn, sessionID string) *Connection {
	return &Connection{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Conn:      ws,
		Send:      make(chan []byte, sendBuffer),
	}
}

// Register adds a connection. It is a no-op once the hub has stopped.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
	}
}

// Unregister removes a connection and closes its Send channel.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Publish queues notice for every watcher of its session. It never blocks
// the caller; notices are dropped when the queue is full.
func (h *Hub) Publish(notice domain.AlertNotice) {
	if notice.Ts == 0 {
		notice.Ts = time.Now().UnixMilli()
	}
	data, err := json.Marshal(notice)
	if err != nil {
		slog.Error("failed to encode alert notice", "error", err)
		return
	}
	select {
	case h.broadcast <- sessionMessage{sessionID: notice.SessionID, data: data}:
	default:
		slog.Warn("alert queue full, dropping notice", "session_id", notice.SessionID, "tool", notice.Name)
	}
}

// WatcherCount returns the number of watchers of sessionID.
func (h *Hub) WatcherCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// Close closes the underlying websocket.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
