package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
	"github.com/SalemAitAmi/flask-chat-app/pkg/presence"
	"github.com/SalemAitAmi/flask-chat-app/pkg/room"
	"github.com/SalemAitAmi/flask-chat-app/pkg/store"
)

// Hub ties the room registry, the presence tracker and the bus fan-out
// together for this gateway instance. Clients register on connect, join rooms
// with explicit frames, and are detached from everything on disconnect.
type Hub struct {
	registry   *room.Registry
	presence   *presence.Tracker
	chats      store.Conversations
	register   chan *Client
	unregister chan *Client
	joins      chan joinRequest
}

type joinRequest struct {
	client *Client
	key    string
}

func NewHub(registry *room.Registry, tracker *presence.Tracker, chats store.Conversations) *Hub {
	return &Hub{
		registry:   registry,
		presence:   tracker,
		chats:      chats,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		joins:      make(chan joinRequest),
	}
}

// Run owns connection lifecycle. Room membership changes and presence
// transitions all funnel through here.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.presence.Connect(ctx, client.username)
			log.Printf("client connected: %s", client.username)

		case client := <-h.unregister:
			h.registry.LeaveAll(client)
			h.presence.Disconnect(ctx, client.username)
			client.shutdown()
			log.Printf("client disconnected: %s", client.username)

		case req := <-h.joins:
			h.registry.Join(req.key, req.client)
			log.Printf("%s joined room %s", req.client.username, req.key)

		case <-ctx.Done():
			return
		}
	}
}

// HandleEvent fans a bus event out to the local members of its room. Called
// by the fan-out consumer; every gateway instance receives every event.
func (h *Hub) HandleEvent(ev model.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("failed to marshal event: %v", err)
		return
	}

	key := ev.Room
	if key == "" {
		key = room.ChatKey(ev.ChatID)
	}

	for _, conn := range h.registry.Members(key) {
		if !conn.Deliver(payload) {
			// Connection is saturated or gone; detach it everywhere and shut
			// it down so the socket closes and the client can reconnect
			// instead of silently missing events.
			h.registry.LeaveAll(conn)
			if client, ok := conn.(*Client); ok {
				client.shutdown()
			}
		}
	}
}
