// Package stream publishes session snapshots to websocket clients.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Veraticus/focus-tracker/pkg/session"
)

// Message types.
const (
	TypeWelcome  = "WELCOME"
	TypeSnapshot = "SNAPSHOT"
	TypePing     = "PING"
	TypePong     = "PONG"
)

const (
	sendBuffer   = 64
	pongWait     = 60 * time.Second
	pingPeriod   = 50 * time.Second
	writeWait    = 10 * time.Second
	shutdownWait = 5 * time.Second
)

// Message is the envelope for everything sent over the socket.
type Message struct {
	Type      string `json:"type"`
	Payload   any    `json:"payload,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	id   string
	send chan Message
}

// Hub fans snapshots out to connected websocket clients.
type Hub struct {
	logger   *slog.Logger
	version  string
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
	last    *session.Snapshot
	started time.Time
}

var _ session.Observer = (*Hub)(nil)

// NewHub creates a hub. version is reported in the welcome message.
func NewHub(logger *slog.Logger, version string) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		version: version,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
		started: time.Now(),
	}
}

// Handler serves /ws and /healthz.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/healthz", h.handleHealth)
	return mux
}

// Serve listens on addr until ctx is done.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("status stream listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	h.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Publish implements session.Observer. Unchanged snapshots are not resent.
func (h *Hub) Publish(s session.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.last != nil && sameState(*h.last, s) {
		return
	}
	h.last = &s

	msg := Message{Type: TypeSnapshot, Payload: s, Timestamp: s.Time.Unix()}
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("dropping snapshot for slow client", "client", c.id)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}

func sameState(a, b session.Snapshot) bool {
	a.Time, b.Time = time.Time{}, time.Time{}
	return a == b
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		id:   uuid.NewString(),
		send: make(chan Message, sendBuffer),
	}

	c.send <- Message{
		Type:      TypeWelcome,
		ClientID:  c.id,
		Timestamp: time.Now().Unix(),
		Payload: map[string]any{
			"message": "Connected to focus-tracker",
			"version": h.version,
		},
	}

	h.mu.Lock()
	h.clients[c.id] = c
	if h.last != nil {
		c.send <- Message{Type: TypeSnapshot, Payload: *h.last, Timestamp: h.last.Time.Unix()}
	}
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "client", c.id)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; ok {
		close(c.send)
		delete(h.clients, c.id)
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.logger.Debug("websocket client disconnected", "client", c.id)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "client", c.id, "error", err)
			}
			return
		}

		switch msg.Type {
		case TypePing:
			h.reply(c, Message{Type: TypePong, ClientID: c.id, Timestamp: time.Now().Unix()})
		default:
			h.logger.Debug("unknown websocket message", "client", c.id, "type", msg.Type)
		}
	}
}

// reply queues msg unless the client was already unregistered.
func (h *Hub) reply(c *client, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) writePump(c *client) {
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
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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

func (h *Hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "method not allowed"})
		return
	}

	h.mu.RLock()
	resp := map[string]any{
		"status":     "healthy",
		"clients":    len(h.clients),
		"uptime_sec": int(time.Since(h.started).Seconds()),
		"timestamp":  time.Now().Format(time.RFC3339),
	}
	if h.last != nil {
		resp["session"] = h.last
	}
	h.mu.RUnlock()

	_ = json.NewEncoder(w).Encode(resp)
}
