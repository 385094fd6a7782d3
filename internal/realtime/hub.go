package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"github.com/quocanhngo/chatcore/pkg/metrics"
	"go.uber.org/zap"
)

// Hub tracks this instance's websocket clients and the channels each one listens on.
// Events arrive from the broker, so every instance delivers to its own subscribers.
type Hub struct {
	clients  map[*Client]map[string]struct{} // client -> subscribed channels
	channels map[string]map[*Client]struct{} // channel -> subscribers
	mu       sync.RWMutex

	broker Broker
	log    *logger.Logger
}

func NewHub(broker Broker, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Global()
	}
	return &Hub{
		clients:  make(map[*Client]map[string]struct{}),
		channels: make(map[string]map[*Client]struct{}),
		broker:   broker,
		log:      log.Named("hub"),
	}
}

// Run subscribes to the broker and delivers its events until ctx is cancelled, then disconnects every client
func (h *Hub) Run(ctx context.Context) error {
	stop, err := h.broker.Subscribe(ctx, h.Deliver)
	if err != nil {
		return fmt.Errorf("hub subscribe: %w", err)
	}
	defer stop()

	<-ctx.Done()
	h.closeAll()
	return nil
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.addClient(client)
}

// Unregister removes a client and closes its send queue; unknown clients are ignored
func (h *Hub) Unregister(client *Client) {
	h.removeClient(client)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		return
	}
	h.clients[client] = make(map[string]struct{})
	metrics.IncrementWSConnections()
	h.log.Debug("client connected", zap.String("user_id", client.UserID.String()))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(client)
}

// dropLocked removes the client from every channel and closes its send queue; h.mu must be held
func (h *Hub) dropLocked(client *Client) {
	subs, ok := h.clients[client]
	if !ok {
		return
	}
	for name := range subs {
		h.leaveLocked(client, name)
	}
	delete(h.clients, client)
	close(client.send)
	metrics.DecrementWSConnections()
	h.log.Debug("client disconnected", zap.String("user_id", client.UserID.String()))
}

func (h *Hub) leaveLocked(client *Client, channel string) {
	if subs, ok := h.channels[channel]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
	if subs, ok := h.clients[client]; ok {
		delete(subs, channel)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.dropLocked(client)
	}
}

// Subscribe adds an already-authorized channel to a registered client
func (h *Hub) Subscribe(client *Client, channel Channel) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.clients[client]
	if !ok {
		return false
	}
	name := channel.String()
	subs[name] = struct{}{}
	if _, ok := h.channels[name]; !ok {
		h.channels[name] = make(map[*Client]struct{})
	}
	h.channels[name][client] = struct{}{}
	return true
}

// Unsubscribe removes a channel from a client; unknown channels are ignored
func (h *Hub) Unsubscribe(client *Client, channel Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, channel.String())
}

// Deliver sends ev to every local subscriber of its channel.
// Clients whose send buffer is full are disconnected.
func (h *Hub) Deliver(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event", zap.String("event", ev.Name), zap.Error(err))
		return
	}

	var slow []*Client
	h.mu.RLock()
	for client := range h.channels[ev.Channel] {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, client := range slow {
		h.log.Warn("client send buffer full, disconnecting", zap.String("user_id", client.UserID.String()))
		h.dropLocked(client)
	}
	h.mu.Unlock()
}

// sendTo queues data for one registered client without blocking
func (h *Hub) sendTo(client *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client]; !ok {
		return false
	}
	select {
	case client.send <- data:
		return true
	default:
		return false
	}
}

// Subscribers returns how many local clients listen on channel
func (h *Hub) Subscribers(channel Channel) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel.String()])
}

// IsUserOnline checks if a user has any active connections on this instance
func (h *Hub) IsUserOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.UserID == userID {
			return true
		}
	}
	return false
}
