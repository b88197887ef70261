package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const defaultClientBuffer = 64

// ClientMessage is an inbound message from a websocket client
type ClientMessage struct {
	Action string `json:"action"`
}

// ActionResync asks the server to push the full current state again
const ActionResync = "resync"

// Conn abstracts a websocket connection for testability.
// *websocket.Conn from gorilla satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is a single websocket connection
type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
	conn   Conn
}

// Hub tracks local clients and their topic subscriptions.
// Topics are fixed at connect time from the caller's identity.
type Hub struct {
	log          *logrus.Logger
	clientBuffer int

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> set of clients
	all     map[*Client]struct{}
}

func NewHub(log *logrus.Logger, clientBuffer int) *Hub {
	if clientBuffer <= 0 {
		clientBuffer = defaultClientBuffer
	}
	return &Hub{
		log:          log,
		clientBuffer: clientBuffer,
		clients:      make(map[string]map[*Client]struct{}),
		all:          make(map[*Client]struct{}),
	}
}

// NewClient wraps conn; the client receives nothing until registered
func (h *Hub) NewClient(conn Conn, topics []string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		Topics: topics,
		Send:   make(chan []byte, h.clientBuffer),
		conn:   conn,
	}
}

// Register adds a client to the hub under its topics
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		h.clients[topic][client] = struct{}{}
	}
}

// Unregister removes a client and closes its Send channel. Idempotent.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}

	for _, topic := range client.Topics {
		if subscribers, ok := h.clients[topic]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, topic)
			}
		}
	}

	delete(h.all, client)
	close(client.Send)
}

// Broadcast sends an event to every local client subscribed to topic.
// A client whose buffer is full misses the event.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warnf("Failed to marshal realtime event %s: %+v", event.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
		default:
			h.log.Debugf("Client %s buffer full, dropping %s on %s", client.ID, event.Type, topic)
		}
	}
}

// Publish implements Publisher for single-instance deployments
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event.Topic, event)
	return nil
}

// Deliver queues events for one client only (resync). Full buffers drop.
func (h *Hub) Deliver(client *Client, events ...Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			h.log.Warnf("Failed to marshal realtime event %s: %+v", event.Type, err)
			continue
		}
		select {
		case client.Send <- data:
		default:
			h.log.Debugf("Client %s buffer full, dropping resync %s", client.ID, event.Type)
		}
	}
}

// Serve pumps messages for a registered client until the connection closes,
// then unregisters it. onMessage receives each well-formed inbound message.
func (h *Hub) Serve(client *Client, onMessage func(ClientMessage)) {
	go h.writePump(client)
	h.readPump(client, onMessage)
}

func (h *Hub) readPump(client *Client, onMessage func(ClientMessage)) {
	defer func() {
		h.Unregister(client)
		client.conn.Close()
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if onMessage != nil {
			onMessage(msg)
		}
	}
}

func (h *Hub) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// ClientCount returns the total number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of clients subscribed to a topic
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}
