// Package websocket pushes order status changes to the connected browsers of
// the order's owner.
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

const EventOrderStatus = "order_status"

// OrderEvent is the message written to subscribers.
type OrderEvent struct {
	Type       string            `json:"type"`
	OrderID    uint              `json:"order_id"`
	Status     model.OrderStatus `json:"status"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Client is one websocket connection. An owner may have several (tabs,
// devices).
type Client struct {
	Hub      *Hub
	Conn     *Conn
	OwnerKey string
	Send     chan []byte
}

func NewClient(hub *Hub, conn *Conn, owner model.CartOwner) *Client {
	return &Client{
		Hub:      hub,
		Conn:     conn,
		OwnerKey: owner.Key(),
		Send:     make(chan []byte, 64),
	}
}

type BroadcastMessage struct {
	OwnerKey string
	Message  []byte
}

// Hub tracks connected clients per owner key.
type Hub struct {
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *BroadcastMessage, 1024),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.OwnerKey] = append(h.clients[client.OwnerKey], client)
			total := len(h.clients[client.OwnerKey])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"owner":          logKey(client.OwnerKey),
				"total_sessions": total,
			})

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			clientList := h.clients[message.OwnerKey]
			for _, client := range clientList {
				select {
				case client.Send <- message.Message:
				default:
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"owner": logKey(message.OwnerKey),
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientList, ok := h.clients[client.OwnerKey]
	if !ok {
		return
	}
	remaining := make([]*Client, 0, len(clientList))
	found := false
	for _, c := range clientList {
		if c == client {
			found = true
			continue
		}
		remaining = append(remaining, c)
	}
	if !found {
		return
	}
	if len(remaining) == 0 {
		delete(h.clients, client.OwnerKey)
	} else {
		h.clients[client.OwnerKey] = remaining
	}
	close(client.Send)

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"owner":              logKey(client.OwnerKey),
		"remaining_sessions": len(remaining),
	})
}

func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SendToOwner queues message for every connection of ownerKey. Messages are
// dropped rather than blocking when the hub is saturated.
func (h *Hub) SendToOwner(ownerKey string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to marshal message", err)
		return err
	}

	select {
	case h.broadcast <- &BroadcastMessage{OwnerKey: ownerKey, Message: data}:
	default:
		logger.Warn("Broadcast channel full, message dropped", map[string]interface{}{
			"owner": logKey(ownerKey),
		})
	}
	return nil
}

// NotifyOrder publishes the order's current status to its owner.
func (h *Hub) NotifyOrder(owner model.CartOwner, order *model.Order) {
	event := OrderEvent{
		Type:       EventOrderStatus,
		OrderID:    order.ID,
		Status:     order.Status,
		TotalPrice: order.TotalPrice,
		UpdatedAt:  order.UpdatedAt,
	}
	if err := h.SendToOwner(owner.Key(), event); err != nil {
		logger.Error("Failed to publish order event", err, map[string]interface{}{
			"order_id": order.ID,
		})
	}
}

func (h *Hub) IsOwnerOnline(ownerKey string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[ownerKey]
	return ok
}

// logKey keeps session tokens out of logs.
func logKey(key string) string {
	const prefix = "session:"
	if len(key) > len(prefix)+8 && key[:len(prefix)] == prefix {
		return key[:len(prefix)+8]
	}
	return key
}
