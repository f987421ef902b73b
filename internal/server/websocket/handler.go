package websocket

import (
	"net/http"
	"strings"

	"github.com/brianly1003/lobo/internal/domain/events"
	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/brianly1003/lobo/internal/hub"
	"github.com/brianly1003/lobo/internal/security"
	lsync "github.com/brianly1003/lobo/internal/sync"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Handler upgrades HTTP requests to WebSocket connections and subscribes
// each client to the hub. A "types" query parameter (comma separated)
// restricts which event types the client receives.
type Handler struct {
	hub            ports.EventHub
	commandHandler CommandHandler
	upgrader       websocket.Upgrader

	mu      lsync.RWMutex
	clients map[string]*Client
}

// NewHandler creates a WebSocket handler.
func NewHandler(h ports.EventHub, commandHandler CommandHandler) *Handler {
	return &Handler{
		hub:            h,
		commandHandler: commandHandler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     security.NewOriginChecker(nil).CheckOrigin,
		},
		clients: make(map[string]*Client),
	}
}

// SetOriginChecker replaces the origin policy. Call it before serving.
func (h *Handler) SetOriginChecker(oc *security.OriginChecker) {
	h.upgrader.CheckOrigin = oc.CheckOrigin
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewClient(conn, h.commandHandler, func(id string) {
		if h.hub != nil {
			h.hub.Unsubscribe(id)
		}
		h.removeClient(id)
	})

	h.mu.Lock()
	h.clients[client.ID()] = client
	h.mu.Unlock()

	if h.hub != nil {
		h.hub.Subscribe(hub.NewFilteredSubscriber(NewClientSubscriber(client), parseTypes(r.URL.Query().Get("types"))...))
	}

	log.Info().
		Str("client_id", client.ID()).
		Str("remote_addr", conn.RemoteAddr().String()).
		Msg("client connected")

	client.Start()
}

func (h *Handler) removeClient(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
	log.Info().Str("client_id", id).Msg("client disconnected")
}

// ClientCount returns the number of connected clients.
func (h *Handler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *Handler) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}

func parseTypes(raw string) []events.EventType {
	var types []events.EventType
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			types = append(types, events.EventType(part))
		}
	}
	return types
}
