package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"eduaudit/internal/infrastructure"
	"eduaudit/pkg/contracts/events"
)

const broadcastBuffer = 64

// Hub keeps the connected clients and fans run updates out to them. The
// newest message is replayed to clients that connect later, so a page
// opened in the middle of a run shows its current state.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	last    []byte
	logger  *slog.Logger
	metrics *hubMetrics

	totalConnections int64
	messagesSent     int64
	droppedClients   int64

	quit     chan struct{}
	quitOnce sync.Once
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		metrics:    newHubMetrics(),
		quit:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is done or Stop is
// called. Remaining clients are disconnected on return.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		h.Stop()
		h.closeClients()
	}()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down")
			return nil
		case <-h.quit:
			h.logger.Info("hub stopped")
			return nil

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.mu.Lock()
			h.last = message
			h.mu.Unlock()
			h.fanOut(message)
		}
	}
}

// Stop ends Run.
func (h *Hub) Stop() {
	h.quitOnce.Do(func() { close(h.quit) })
}

// Register adds client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.totalConnections++
	last := h.last
	h.mu.Unlock()

	ctx := client.context()
	h.logger.InfoContext(ctx, "client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))
	h.metrics.connected(ctx)

	welcome, err := json.Marshal(events.Message{
		Type:      events.MessageTypeConnection,
		Data:      events.ConnectionData{Status: "connected", ClientID: client.id},
		Timestamp: time.Now(),
		TraceID:   client.traceID,
	})
	if err == nil {
		h.sendTo(client, welcome)
	}
	if last != nil {
		h.sendTo(client, last)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.logger.InfoContext(ctx, "client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
	h.metrics.disconnected(ctx, time.Since(client.connectedAt))
}

// sendTo queues message for client. A client whose buffer is full is
// dropped.
func (h *Hub) sendTo(client *Client, message []byte) bool {
	select {
	case client.send <- message:
		h.mu.Lock()
		h.messagesSent++
		h.mu.Unlock()
		return true
	default:
		h.mu.Lock()
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
			h.droppedClients++
		}
		h.mu.Unlock()
		h.logger.WarnContext(client.context(), "client send buffer full, disconnecting",
			slog.String("client_id", client.id))
		h.metrics.dropped(client.context())
		return false
	}
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	failed := 0
	for _, client := range clients {
		if !h.sendTo(client, message) {
			failed++
		}
	}
	h.logger.Debug("broadcast",
		slog.Int("client_count", len(clients)),
		slog.Int("message_size", len(message)),
		slog.Int("failed", failed))
}

func (h *Hub) closeClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// BroadcastUpdate sends an event to every client. runID and status are
// repeated next to the payload so clients can filter without decoding it.
func (h *Hub) BroadcastUpdate(eventType, runID, status string, data interface{}) {
	payload, err := json.Marshal(events.Message{
		Type:      events.MessageType(eventType),
		RunID:     runID,
		Status:    status,
		Data:      data,
		Timestamp: time.Now(),
	})
	if err != nil {
		infrastructure.WithError(h.logger, err).Error("marshal broadcast",
			slog.String("message_type", eventType))
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns the hub counters.
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"dropped_clients":   h.droppedClients,
	}
}
