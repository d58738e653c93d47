package websocket

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/wabridge/wabridge/session"
)

// Frame is the wire shape of every WebSocket event.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Subscriber is the writable side of a WebSocket connection. An interface
// so the hub can be exercised without real sockets.
type Subscriber interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

const closeCodeUnauthorized = 4401

// Hub fans session events out to every connected consumer. A write failure
// prunes the connection; there is no per-client retry or queueing.
type Hub struct {
	state      *session.State
	clients    map[Subscriber]struct{}
	register   chan Subscriber
	unregister chan Subscriber
	broadcast  chan Frame
}

func NewHub(state *session.State) *Hub {
	return &Hub{
		state:      state,
		clients:    make(map[Subscriber]struct{}),
		register:   make(chan Subscriber),
		unregister: make(chan Subscriber),
		broadcast:  make(chan Frame, 64),
	}
}

// Publish implements session.Broadcaster.
func (h *Hub) Publish(event string, data any) {
	h.broadcast <- Frame{Event: event, Data: data}
}

func (h *Hub) Register(sub Subscriber) {
	h.register <- sub
}

func (h *Hub) Unregister(sub Subscriber) {
	h.unregister <- sub
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for sub := range h.clients {
				_ = sub.Close()
				delete(h.clients, sub)
			}
			return

		case sub := <-h.register:
			h.handleRegister(sub)

		case sub := <-h.unregister:
			delete(h.clients, sub)
			logrus.Debug("[WS] Connection unregistered")

		case frame := <-h.broadcast:
			h.broadcastToLocal(frame)
		}
	}
}

// handleRegister adds the connection and immediately sends it one status
// frame with the current session state, so late joiners never wait for the
// next transition.
func (h *Hub) handleRegister(sub Subscriber) {
	h.clients[sub] = struct{}{}
	logrus.Debug("[WS] Connection registered")

	snap := h.state.Snapshot()
	h.writeTo(sub, Frame{Event: "status", Data: map[string]any{"status": snap.Status}})
	if snap.Status == session.StatusQRReady && snap.QRDataURL != "" {
		h.writeTo(sub, Frame{Event: "qr", Data: map[string]any{"qr_data_url": snap.QRDataURL}})
	}
}

func (h *Hub) broadcastToLocal(frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}

	for sub := range h.clients {
		if err := sub.WriteMessage(websocket.TextMessage, payload); err != nil {
			logrus.Errorf("[WS] Write error: %v", err)
			_ = sub.Close()
			delete(h.clients, sub)
		}
	}
}

func (h *Hub) writeTo(sub Subscriber, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}
	if err := sub.WriteMessage(websocket.TextMessage, payload); err != nil {
		logrus.Errorf("[WS] Write error: %v", err)
		_ = sub.Close()
		delete(h.clients, sub)
	}
}

// RegisterRoutes mounts /ws. The token rides in the query string since
// browsers cannot set headers on WebSocket upgrades; a bad token gets an
// application close code instead of a silent drop.
func RegisterRoutes(app fiber.Router, hub *Hub, token string) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		if conn.Query("token") != token {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(closeCodeUnauthorized, "unauthorized"))
			_ = conn.Close()
			return
		}

		defer func() {
			hub.Unregister(conn)
			_ = conn.Close()
		}()

		hub.Register(conn)

		// Inbound frames are ignored; the read loop only watches for EOF.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Debugf("[WS] Read error: %v", err)
				}
				return
			}
		}
	}))
}
