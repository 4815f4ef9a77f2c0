package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SalemAitAmi/flask-chat-app/pkg/bus"
	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
	"github.com/SalemAitAmi/flask-chat-app/pkg/presence"
	"github.com/SalemAitAmi/flask-chat-app/pkg/room"
	"github.com/SalemAitAmi/flask-chat-app/pkg/store"
)

func newTestHub(t *testing.T) (*Hub, *room.Registry, int64) {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemory()
	for _, name := range []string{"alice", "boby"} {
		_, err := st.AddUser(ctx, name, "hash")
		require.NoError(t, err)
	}
	chatID, err := st.CreateChat(ctx, []string{"alice", "boby"})
	require.NoError(t, err)

	registry := room.NewRegistry()
	tracker := presence.NewTracker(st, registry, bus.NewLoopback(), nil)
	return NewHub(registry, tracker, st), registry, chatID
}

func TestHandleEventDeliversToRoomMembers(t *testing.T) {
	hub, registry, chatID := newTestHub(t)

	client := &Client{hub: hub, send: make(chan []byte, 1), username: "alice"}
	registry.Join(room.ChatKey(chatID), client)

	hub.HandleEvent(model.Event{Type: model.EventNewMessage, ChatID: chatID, Sender: "boby", Message: "hi"})

	require.Len(t, client.send, 1)
	assert.Len(t, registry.Members(room.ChatKey(chatID)), 1)
}

func TestHandleEventShutsDownUndeliverableClient(t *testing.T) {
	hub, registry, chatID := newTestHub(t)

	// Unbuffered send channel with no writePump draining it: Deliver fails.
	client := &Client{hub: hub, send: make(chan []byte), username: "alice"}
	registry.Join(room.ChatKey(chatID), client)

	hub.HandleEvent(model.Event{Type: model.EventNewMessage, ChatID: chatID, Sender: "boby", Message: "hi"})

	assert.Empty(t, registry.Members(room.ChatKey(chatID)))

	client.mu.Lock()
	closed := client.closed
	client.mu.Unlock()
	assert.True(t, closed, "a client that cannot be delivered to must be shut down, not just dropped from rooms")

	// Later deliveries see the closed flag instead of a closed channel.
	assert.False(t, client.Deliver([]byte("late")))
}
