package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SalemAitAmi/flask-chat-app/pkg/auth"
	"github.com/SalemAitAmi/flask-chat-app/pkg/room"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer. Clients only send join frames.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Client is a middleman between one websocket connection and the hub. A
// single connection may join many rooms, one per open chat view.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	username string
	userID   int64

	mu     sync.Mutex
	closed bool
}

var _ room.Conn = (*Client)(nil)

func (c *Client) Username() string { return c.username }

// Deliver queues a payload without blocking. False means the send buffer is
// full or closed and the connection should be dropped.
func (c *Client) Deliver(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// shutdown closes the send channel exactly once. Deliver calls racing it see
// the closed flag instead of a closed channel.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// joinFrame is the only client->server traffic on the persistent channel.
// Everything else (sending messages, renames) goes through the api.
type joinFrame struct {
	Type   string `json:"type"`
	ChatID int64  `json:"chat_id,omitempty"`
	Room   string `json:"room,omitempty"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// readPump consumes join frames from the websocket until the peer goes away.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("read error for %s: %v", c.username, err)
			}
			break
		}

		var frame joinFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.sendError("unrecognized frame")
			continue
		}

		switch frame.Type {
		case "join_chat":
			c.joinChat(frame.ChatID)
		case "join":
			c.joinLegacyRoom(frame.Room)
		default:
			c.sendError("unrecognized frame type")
		}
	}
}

// joinChat subscribes to a chat-id room after a membership check, so a client
// can never listen in on a conversation it does not belong to.
func (c *Client) joinChat(chatID int64) {
	if chatID <= 0 {
		c.sendError("chat_id required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	member, err := c.hub.chats.IsParticipant(ctx, chatID, c.username)
	if err != nil {
		log.Printf("membership check failed for %s on chat %d: %v", c.username, chatID, err)
		c.sendError("server error")
		return
	}
	if !member {
		c.sendError("access denied")
		return
	}
	c.hub.joins <- joinRequest{client: c, key: room.ChatKey(chatID)}
}

// joinLegacyRoom supports the old sorted-pair direct rooms. The key must name
// this user on one of its two sides.
func (c *Client) joinLegacyRoom(key string) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "dm" {
		c.sendError("invalid room format")
		return
	}
	if parts[1] != c.username && parts[2] != c.username {
		c.sendError("access denied")
		return
	}
	// Normalize so both sides land in the same room regardless of how the
	// client ordered the pair.
	c.hub.joins <- joinRequest{client: c, key: room.DirectKey(parts[1], parts[2])}
}

func (c *Client) sendError(msg string) {
	payload, _ := json.Marshal(errorFrame{Type: "error", Message: msg})
	c.Deliver(payload)
}

// writePump pumps queued events to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// serveWs authenticates the request and hands the upgraded connection to the
// hub.
func serveWs(hub *Hub, tokens *auth.Manager, w http.ResponseWriter, r *http.Request) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		// Query param fallback, standard for browser websocket clients.
		tokenString = r.URL.Query().Get("token")
	}
	if tokenString == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := tokens.ValidateToken(tokenString)
	if err != nil {
		log.Printf("rejected websocket: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		username: claims.Username,
		userID:   claims.UserID,
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
