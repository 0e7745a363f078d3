package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-edge/protocol"
)

const (
	// wsWriteWait is the deadline for a single frame write.
	wsWriteWait = 10 * time.Second

	// wsPongWait is how long to wait for a pong before dropping the client.
	wsPongWait = 60 * time.Second

	// wsPingPeriod must be shorter than wsPongWait.
	wsPingPeriod = 54 * time.Second

	// wsSendBuffer is the per-client outbound queue. Clients that fall this
	// far behind are disconnected rather than blocking the hub.
	wsSendBuffer = 64
)

// pointValueEvent is the message broadcast for every committed point value.
type pointValueEvent struct {
	Type      string         `json:"type"`
	PointID   int64          `json:"point_id"`
	Value     protocol.Value `json:"value"`
	Timestamp time.Time      `json:"timestamp"`
}

// wsClient is one connected WebSocket subscriber.
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans committed point values out to WebSocket clients.
//
// It satisfies the dispatch engine's Publisher interface, so wiring it as
// the publisher streams every committed value to every connected client.
// PublishValue never blocks: the event goes onto a channel drained by Run,
// and clients whose queues are full are dropped.
type Hub struct {
	logger *logging.Logger

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:     logger,
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 256),
	}
}

// Run owns the client set. It exits when ctx is cancelled, closing every
// client connection.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*wsClient]struct{})

	defer func() {
		for c := range clients {
			close(c.send)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			clients[c] = struct{}{}
			h.logger.Debug("websocket client connected", "client_id", c.id, "clients", len(clients))

		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
				h.logger.Debug("websocket client disconnected", "client_id", c.id, "clients", len(clients))
			}

		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer; drop it.
					delete(clients, c)
					close(c.send)
					h.logger.Warn("websocket client dropped, send queue full", "client_id", c.id)
				}
			}
		}
	}
}

// PublishValue broadcasts a committed point value to all clients.
func (h *Hub) PublishValue(pointID int64, v protocol.Value, at time.Time) {
	msg, err := json.Marshal(pointValueEvent{
		Type:      "point_value",
		PointID:   pointID,
		Value:     v,
		Timestamp: at.UTC(),
	})
	if err != nil {
		h.logger.Error("encoding point value event", "point_id", pointID, "error", err)
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		// Hub is saturated; live stream is best-effort, so shed.
		h.logger.Warn("websocket broadcast queue full, event dropped", "point_id", pointID)
	}
}

// handleWebSocket upgrades the connection and attaches it to the hub. Auth
// has already run in middleware (token query parameter for browsers).
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.isAllowedOrigin(origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
	}
	s.hub.register <- client

	go client.writePump()
	go client.readPump(s.hub)
}

// writePump pushes queued messages and pings to the client. It exits when
// the send channel is closed by the hub.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // Connection teardown
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck // Deadline on live conn
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck // Best-effort close frame
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck // Deadline on live conn
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound frames so pongs and close frames are processed.
// The stream is outbound-only; client payloads are discarded.
func (c *wsClient) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close() //nolint:errcheck // Connection teardown
	}()

	c.conn.SetReadLimit(maxRequestBodySize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait)) //nolint:errcheck // Deadline on live conn
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
