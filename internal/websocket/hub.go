package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/distrack-profile/internal/domain"
)

// Message types
const (
	MessageTypeLeaderboardUpdate = "leaderboard_update"
	MessageTypeRankUpdate        = "rank_update"
	MessageTypeWatch             = "watch"
	MessageTypeUnwatch           = "unwatch"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
	MessageTypeError             = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// LeaderboardUpdate carries the current top of the coding-time leaderboard
type LeaderboardUpdate struct {
	Entries    []domain.LeaderboardEntry `json:"entries"`
	TotalUsers int64                     `json:"total_users"`
}

// Hub maintains the set of active clients. Leaderboard updates go to every
// connection; rank updates only to clients watching that user.
type Hub struct {
	// All connected clients
	clients map[*Client]bool

	// Clients watching a specific user's rank, keyed by user id
	watchers map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	watch      chan *watchRequest
	unwatch    chan *watchRequest

	mu sync.RWMutex

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type watchRequest struct {
	client *Client
	userID string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		watchers:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		watch:      make(chan *watchRequest, 64),
		unwatch:    make(chan *watchRequest, 64),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for userID, watching := range h.watchers {
					if _, ok := watching[client]; ok {
						delete(watching, client)
						if len(watching) == 0 {
							delete(h.watchers, userID)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.watch:
			h.mu.Lock()
			if _, ok := h.watchers[req.userID]; !ok {
				h.watchers[req.userID] = make(map[*Client]bool)
			}
			h.watchers[req.userID][req.client] = true
			h.mu.Unlock()
			h.logger.Debug("client watching user", "client_id", req.client.id, "user_id", req.userID)

		case req := <-h.unwatch:
			h.mu.Lock()
			if watching, ok := h.watchers[req.userID]; ok {
				delete(watching, req.client)
				if len(watching) == 0 {
					delete(h.watchers, req.userID)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client stopped watching user", "client_id", req.client.id, "user_id", req.userID)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage routes a message: rank updates to the user's watchers,
// everything else to all connected clients.
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	if message.Type == MessageTypeRankUpdate && message.UserID != "" {
		if watching, ok := h.watchers[message.UserID]; ok {
			for client := range watching {
				select {
				case client.send <- data:
				default:
					h.logger.Warn("client buffer full, skipping", "client_id", client.id)
				}
			}
		}
		return
	}

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

// BroadcastLeaderboard sends the current leaderboard top to all clients
func (h *Hub) BroadcastLeaderboard(entries []domain.LeaderboardEntry, total int64) {
	message := &Message{
		Type: MessageTypeLeaderboardUpdate,
		Data: LeaderboardUpdate{
			Entries:    entries,
			TotalUsers: total,
		},
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastRank notifies watchers of a user's new rank and total
func (h *Hub) BroadcastRank(userID string, entry domain.LeaderboardEntry) {
	message := &Message{
		Type:      MessageTypeRankUpdate,
		UserID:    userID,
		Data:      entry,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Watch subscribes a client to a user's rank updates
func (h *Hub) Watch(client *Client, userID string) {
	h.watch <- &watchRequest{client: client, userID: userID}
}

// Unwatch removes a client's rank subscription
func (h *Hub) Unwatch(client *Client, userID string) {
	h.unwatch <- &watchRequest{client: client, userID: userID}
}

// GetWatcherCount returns the number of clients watching a user
func (h *Hub) GetWatcherCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if watching, ok := h.watchers[userID]; ok {
		return len(watching)
	}
	return 0
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
