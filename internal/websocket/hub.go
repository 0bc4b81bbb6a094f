package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/hyerin/maplecart-backend/pkg/logger"
)

// Message types pushed to connected clients.
const (
	MessageCartUpdated       = "cart_updated"
	MessageMembershipUpdated = "membership_updated"
)

// ClientMessage is a message received from a client.
type ClientMessage struct {
	Type string `json:"type"` // refresh_request
}

// Client is one WebSocket session of a user. A user may hold several
// sessions at once (multiple tabs or devices).
type Client struct {
	Hub       *Hub
	Conn      *Conn
	UserID    uint
	SessionID string
	Send      chan []byte

	MessageCount  int
	LastResetTime time.Time
	RateMu        sync.Mutex
}

// Hub tracks connected sessions per user and fans out pushed messages.
type Hub struct {
	// UserID -> sessions (multi-device support)
	clients map[uint][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *userMessage

	mu sync.RWMutex
}

type userMessage struct {
	UserID uint
	// Session that caused the update; it already holds the result and
	// is skipped.
	ExcludeSession string
	Message        []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *userMessage, 1024),
	}
}

// Run processes register/unregister/broadcast events. Call it once in a
// dedicated goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"session_id":     client.SessionID,
				"total_sessions": len(h.clients[client.UserID]),
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if clientList, ok := h.clients[client.UserID]; ok {
				newList := make([]*Client, 0, len(clientList))
				for _, c := range clientList {
					if c != client {
						newList = append(newList, c)
					}
				}
				if len(newList) == 0 {
					delete(h.clients, client.UserID)
				} else {
					h.clients[client.UserID] = newList
				}
				close(client.Send)
			}
			h.mu.Unlock()
			logger.Info("WebSocket client unregistered", map[string]interface{}{
				"user_id":    client.UserID,
				"session_id": client.SessionID,
			})

		case message := <-h.broadcast:
			h.mu.RLock()
			if clientList, ok := h.clients[message.UserID]; ok {
				for _, client := range clientList {
					if message.ExcludeSession != "" && client.SessionID == message.ExcludeSession {
						continue
					}
					select {
					case client.Send <- message.Message:
					default:
						// Send buffer full - drop the session asynchronously
						go h.Unregister(client)
						logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
							"user_id":    client.UserID,
							"session_id": client.SessionID,
						})
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// PushToUser sends a message to every session of a user, optionally
// excluding the session that triggered the update. A full broadcast
// channel drops the message; clients recover on their next refresh.
func (h *Hub) PushToUser(userID uint, messageType string, payload interface{}, excludeSession string) error {
	data, err := json.Marshal(map[string]interface{}{
		"type": messageType,
		"data": payload,
	})
	if err != nil {
		logger.Error("Failed to marshal push message", err, nil)
		return err
	}

	select {
	case h.broadcast <- &userMessage{
		UserID:         userID,
		ExcludeSession: excludeSession,
		Message:        data,
	}:
		return nil
	default:
		logger.Warn("Broadcast channel full, message dropped", map[string]interface{}{
			"user_id": userID,
		})
		return nil
	}
}

// BroadcastCartToUser pushes a freshly committed cart to the user's other
// sessions so they converge without polling.
func (h *Hub) BroadcastCartToUser(userID uint, cart interface{}, excludeSession string) {
	_ = h.PushToUser(userID, MessageCartUpdated, cart, excludeSession)
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// IsUserOnline reports whether the user has at least one session.
func (h *Hub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// HandleClientMessage processes an inbound client message with rate
// limiting.
func (h *Hub) HandleClientMessage(client *Client, message []byte, onRefresh func(userID uint)) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	if msg.Type == "refresh_request" && onRefresh != nil {
		onRefresh(client.UserID)
	}
}
