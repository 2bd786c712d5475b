// file: internal/realtime/events.go
// version: 2.0.0
// guid: 9e8d7f6a-5c4b-3a21-0f9e-8d7c6b5a4392

package realtime

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// EventType defines the type of real-time event
type EventType string

const (
	EventOperationProgress EventType = "operation.progress"
	EventOperationStatus   EventType = "operation.status"
	EventProviderCircuit   EventType = "provider.circuit"
	EventConnected         EventType = "connection.established"
)

// heartbeatInterval keeps idle connections open through proxies.
const heartbeatInterval = 15 * time.Second

// Event is one message pushed to clients. Topic is the operation or
// provider the event concerns; clients may filter on it.
type Event struct {
	Type      EventType      `json:"type"`
	Topic     string         `json:"topic,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID      string
	Channel chan *Event

	mu     sync.RWMutex
	topics map[string]bool
}

// NewClient creates a new SSE client
func NewClient(id string) *Client {
	return &Client{
		ID:      id,
		Channel: make(chan *Event, 100),
		topics:  make(map[string]bool),
	}
}

// Subscribe limits the client to events about topic. A client without
// subscriptions receives everything.
func (c *Client) Subscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[topic] = true
}

// Unsubscribe removes topic from the client's filter.
func (c *Client) Unsubscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.topics, topic)
}

// Wants reports whether the client should receive an event about topic.
func (c *Client) Wants(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return topic == "" || len(c.topics) == 0 || c.topics[topic]
}

// EventHub manages SSE connections and event distribution
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	now     func() time.Time
}

// NewEventHub creates a new event hub
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]*Client),
		now:     time.Now,
	}
}

// RegisterClient registers a new client
func (h *EventHub) RegisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("[DEBUG] realtime: client %s registered, total clients: %d", client.ID, len(h.clients))
}

// UnregisterClient removes a client and closes its channel.
func (h *EventHub) UnregisterClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[clientID]; exists {
		close(client.Channel)
		delete(h.clients, clientID)
		log.Printf("[DEBUG] realtime: client %s unregistered, remaining clients: %d", clientID, len(h.clients))
	}
}

// Broadcast sends event to every interested client. Slow clients lose
// events rather than blocking the sender.
func (h *EventHub) Broadcast(event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if !client.Wants(event.Topic) {
			continue
		}
		select {
		case client.Channel <- event:
		default:
			log.Printf("[WARN] realtime: client %s channel full, dropping %s event", client.ID, event.Type)
		}
	}
}

// OperationProgress publishes a progress update of a queued operation.
func (h *EventHub) OperationProgress(operationID string, current, total int, message string) {
	h.Broadcast(&Event{
		Type:      EventOperationProgress,
		Topic:     operationID,
		Timestamp: h.now(),
		Data: map[string]any{
			"operation_id": operationID,
			"current":      current,
			"total":        total,
			"message":      message,
			"percentage":   calculatePercentage(current, total),
		},
	})
}

// OperationStatus publishes a status change of a queued operation.
func (h *EventHub) OperationStatus(operationID, status, message string) {
	h.Broadcast(&Event{
		Type:      EventOperationStatus,
		Topic:     operationID,
		Timestamp: h.now(),
		Data: map[string]any{
			"operation_id": operationID,
			"status":       status,
			"message":      message,
		},
	})
}

// CircuitTransition publishes a provider moving between circuit states.
func (h *EventHub) CircuitTransition(providerID string, before, after models.CircuitState) {
	h.Broadcast(&Event{
		Type:      EventProviderCircuit,
		Topic:     providerID,
		Timestamp: h.now(),
		Data: map[string]any{
			"provider_id": providerID,
			"from":        before,
			"to":          after,
		},
	})
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleSSE streams events until the client disconnects. Repeated "topic"
// query parameters restrict the stream to those operations or providers.
func (h *EventHub) HandleSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := fmt.Sprintf("client-%d", time.Now().UnixNano())
	client := NewClient(clientID)
	for _, topic := range c.QueryArray("topic") {
		if topic != "" {
			client.Subscribe(topic)
		}
	}

	h.RegisterClient(client)
	defer h.UnregisterClient(clientID)

	if !writeEvent(c, &Event{
		Type:      EventConnected,
		Timestamp: h.now(),
		Data:      map[string]any{"client_id": clientID},
	}) {
		return
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event := <-client.Channel:
			if !writeEvent(c, event) {
				return
			}
		case <-ticker.C:
			if _, err := c.Writer.Write([]byte(": heartbeat\n\n")); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

// writeEvent writes one SSE frame and reports whether the client is
// still reachable.
func writeEvent(c *gin.Context, event *Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ERROR] realtime: failed to encode %s event: %v", event.Type, err)
		return true
	}
	if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}

// calculatePercentage calculates percentage with bounds checking
func calculatePercentage(current, total int) int {
	if total <= 0 {
		return 0
	}
	percentage := (current * 100) / total
	if percentage > 100 {
		return 100
	}
	return percentage
}
