package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"playshelf/core/session"
	"playshelf/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// stateClient is one WebSocket subscriber of session state.
type stateClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// StateHub fans the controller's state stream out to WebSocket clients.
// Every recomputed snapshot is pushed; the channel is read-only for clients.
type StateHub struct {
	controller *session.Controller

	clients    map[*stateClient]bool
	register   chan *stateClient
	unregister chan *stateClient

	mu   sync.RWMutex
	done chan struct{}
}

// NewStateHub creates a StateHub over the controller.
func NewStateHub(controller *session.Controller) *StateHub {
	return &StateHub{
		controller: controller,
		clients:    make(map[*stateClient]bool),
		register:   make(chan *stateClient),
		unregister: make(chan *stateClient),
		done:       make(chan struct{}),
	}
}

// Run consumes the controller's state stream and the client lifecycle
// channels until Stop is called.
func (h *StateHub) Run() {
	states, cancel := h.controller.Subscribe()
	defer cancel()

	for {
		select {
		case <-h.done:
			h.cleanup()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Info("state subscriber connected", logger.String("client", client.id))

			// New subscribers get the current snapshot immediately.
			h.push(client, h.controller.CurrentState())

		case client := <-h.unregister:
			h.removeClient(client)

		case state, ok := <-states:
			if !ok {
				h.cleanup()
				return
			}
			h.broadcast(state)
		}
	}
}

// Stop shuts the hub down.
func (h *StateHub) Stop() {
	close(h.done)
}

func (h *StateHub) broadcast(state session.State) {
	payload, err := json.Marshal(state)
	if err != nil {
		logger.Error("failed to marshal session state", logger.ErrorField(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// Slow consumers miss snapshots rather than blocking the hub.
		}
	}
}

func (h *StateHub) push(client *stateClient, state session.State) {
	payload, err := json.Marshal(state)
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
	}
}

func (h *StateHub) removeClient(client *stateClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		logger.Info("state subscriber disconnected", logger.String("client", client.id))
	}
}

func (h *StateHub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
	h.clients = make(map[*stateClient]bool)
}

// SessionStateWSHandler upgrades the connection and streams session state
// snapshots until the client goes away.
func (h *APIHandler) SessionStateWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := &stateClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, 16),
	}
	h.hub.register <- client

	go client.writePump()
	client.readPump(h.hub)
}

// writePump pushes queued snapshots and keepalive pings to the socket.
func (c *stateClient) writePump() {
	pingTicker := time.NewTicker(wsPingInterval)
	defer func() {
		pingTicker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection (the subscription is read-only, inbound
// messages are discarded) and unregisters on close.
func (c *stateClient) readPump(hub *StateHub) {
	defer func() {
		hub.unregister <- c
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
