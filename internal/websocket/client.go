package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// A peer that has not answered a ping within this window is dead.
	pongTimeout  = 60 * time.Second
	pingInterval = pongTimeout - 6*time.Second

	writeTimeout = 10 * time.Second

	// Inbound frames carry only small watch/unwatch commands.
	maxFrameBytes = 1024

	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The embed surface is meant to be hotlinked from anywhere.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one WebSocket connection. The hub writes into send; two
// goroutines (readLoop, writeLoop) own the connection for its lifetime.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger
}

// ClientMessage is a command frame sent by the browser
type ClientMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id,omitempty"`
}

// ServeWs upgrades the request and starts the connection's pump goroutines
func ServeWs(hub *Hub, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		id:     uuid.New().String(),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: logger,
	}
	hub.Register(client)

	go client.writeLoop()
	go client.readLoop()

	logger.Debug("new websocket connection", "client_id", client.id)
}

// readLoop consumes command frames until the peer goes away, then tears the
// client down.
func (c *Client) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			c.logger.Warn("invalid message format", "error", err)
			c.reply(MessageTypeError, "", map[string]string{"error": "invalid message format"})
			continue
		}

		switch msg.Type {
		case MessageTypeWatch:
			if msg.UserID == "" {
				c.reply(MessageTypeError, "", map[string]string{"error": "user_id required for watch"})
				continue
			}
			c.hub.Watch(c, msg.UserID)
			c.reply("watching", msg.UserID, map[string]string{"status": "ok"})

		case MessageTypeUnwatch:
			if msg.UserID != "" {
				c.hub.Unwatch(c, msg.UserID)
				c.reply("unwatched", msg.UserID, map[string]string{"status": "ok"})
			}

		case MessageTypePing:
			c.reply(MessageTypePong, "", nil)

		default:
			c.logger.Debug("unknown message type", "type", msg.Type)
		}
	}
}

// writeLoop drains the send channel to the peer, one frame per message, and
// keeps the connection alive with periodic pings.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// The hub closed the channel on unregister.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply queues a protocol response for this client. Responses are best
// effort: a full buffer means the client is too slow to care.
func (c *Client) reply(msgType, userID string, data interface{}) {
	frame, err := json.Marshal(Message{
		Type:      msgType,
		UserID:    userID,
		Data:      data,
		Timestamp: time.Now(),
	})
	if err != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}
