// File: internal/server/hub.go
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/workflow"
)

// Constants for WebSocket timeouts and limits (based on Gorilla WebSocket examples).
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Subscribers only listen; anything they send is discarded.
	maxMessageSize = 512
	sendBufferSize = 64
)

// ErrHubClosed is returned by Publish once the hub has stopped.
var ErrHubClosed = errors.New("status hub closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The server binds to loopback by default; the popup page connects from an
	// extension origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// subscriber is one websocket connection following the status stream.
type subscriber struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans status announcements out to websocket subscribers. All subscriber
// bookkeeping happens on the goroutine running Run.
type Hub struct {
	logger      *zap.Logger
	subscribers map[*subscriber]struct{}
	broadcast   chan []byte
	register    chan *subscriber
	unregister  chan *subscriber
	done        chan struct{}
}

var _ workflow.Reporter = (*Hub)(nil)

// NewHub creates a hub. Nothing is delivered until Run is started.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:      logger.Named("status_hub"),
		subscribers: make(map[*subscriber]struct{}),
		broadcast:   make(chan []byte, sendBufferSize),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		done:        make(chan struct{}),
	}
}

// Run owns the subscriber set until ctx is canceled, then closes every
// subscriber.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Debug("Status hub started.")
	defer h.logger.Debug("Status hub stopped.")

	for {
		select {
		case <-ctx.Done():
			for s := range h.subscribers {
				close(s.send)
				delete(h.subscribers, s)
			}
			close(h.done)
			return
		case s := <-h.register:
			h.subscribers[s] = struct{}{}
			h.logger.Info("Status subscriber connected.", zap.String("subscriber_id", s.id))
		case s := <-h.unregister:
			if _, ok := h.subscribers[s]; ok {
				delete(h.subscribers, s)
				close(s.send)
				h.logger.Info("Status subscriber disconnected.", zap.String("subscriber_id", s.id))
			}
		case msg := <-h.broadcast:
			for s := range h.subscribers {
				select {
				case s.send <- msg:
				default:
					// A subscriber that cannot keep up is dropped.
					close(s.send)
					delete(h.subscribers, s)
					h.logger.Warn("Dropped slow status subscriber.", zap.String("subscriber_id", s.id))
				}
			}
		}
	}
}

// Publish queues s for every subscriber.
func (h *Hub) Publish(ctx context.Context, s workflow.Status) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP upgrades the request and subscribes the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("Failed to upgrade status connection.", zap.Error(err))
		return
	}
	s := &subscriber{id: uuid.NewString(), hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}

	select {
	case h.register <- s:
	case <-h.done:
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go s.writePump()
	s.readPump()
}

// readPump discards inbound frames and keeps the pong deadline fresh. It
// returns when the connection closes.
func (s *subscriber) readPump() {
	defer func() {
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Debug("Status subscriber read error.", zap.Error(err))
			}
			return
		}
	}
}

// writePump sends queued statuses, one text frame each, and pings the peer.
func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
