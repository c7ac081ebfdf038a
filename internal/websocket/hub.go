package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"tricys-client/internal/pkg/logger"
	"tricys-client/internal/service"
	"tricys-client/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "tricys_bridge_events"

// Message kinds pushed to viewers.
const (
	KindEvent        = "event"
	KindNotification = "notification"
	KindDialog       = "dialog"
)

type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type clusterMessage struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

// Hub fans state changes out to every connected viewer. With Redis it also
// relays to viewers attached to other bridge instances.
type Hub struct {
	// Instance id, used to skip our own messages coming back from Redis.
	origin string

	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	rdb    *redis.Client
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		origin:     uuid.NewString(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Info("Hub", "Viewer connected", map[string]interface{}{"client_id": client.ID})

		case client := <-h.unregister:
			if h.drop(client) {
				h.logger.Info("Hub", "Viewer disconnected", map[string]interface{}{"client_id": client.ID})
			}
		}
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends one message to every local viewer and, with Redis, to
// every other instance.
func (h *Hub) Broadcast(kind string, data interface{}) {
	payload, err := json.Marshal(envelope{Type: kind, Data: data})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode message", map[string]interface{}{"type": kind, "error": err.Error()})
		return
	}
	h.deliverLocal(payload)

	if h.rdb != nil {
		msg, _ := json.Marshal(clusterMessage{Origin: h.origin, Message: payload})
		if err := h.rdb.Publish(context.Background(), clusterChannel, msg).Err(); err != nil {
			h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// Deliver implements service.NotificationDelivery.
func (h *Hub) Deliver(action string, n service.Notification) {
	h.Broadcast(KindNotification, map[string]interface{}{
		"action":       action,
		"notification": n,
	})
}

// DeliverDialog implements service.DialogDelivery.
func (h *Hub) DeliverDialog(p *service.Prompt) {
	h.Broadcast(KindDialog, p)
}

// Relay forwards every bus event to viewers until the subscription ends.
func (h *Hub) Relay(ctx context.Context, sub service.EventSubscriber) error {
	ch, err := sub.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for ev := range ch {
			h.Broadcast(KindEvent, events.BaseEvent{
				Type:       ev.EventType(),
				Data:       ev.Payload(),
				OccurredAt: ev.Timestamp(),
			})
		}
	}()
	return nil
}

func (h *Hub) deliverLocal(payload []byte) {
	var slow []*Client

	h.mu.RLock()
	for _, client := range h.clients {
		select {
		case client.Send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Hub", "Client Send buffer full, dropping viewer", map[string]interface{}{"client_id": client.ID})
		h.drop(client)
	}
}

// drop removes client and closes its Send channel exactly once.
func (h *Hub) drop(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[client.ID]; !ok || cur != client {
		return false
	}
	delete(h.clients, client.ID)
	close(client.Send)
	return true
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.origin {
			continue
		}
		h.deliverLocal(payload.Message)
	}
}
