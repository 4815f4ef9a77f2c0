// Package broadcast accepts outbound messages and structural events,
// persists them, and hands them to the bus for room fan-out.
package broadcast

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SalemAitAmi/flask-chat-app/pkg/bus"
	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
	"github.com/SalemAitAmi/flask-chat-app/pkg/snowflake"
	"github.com/SalemAitAmi/flask-chat-app/pkg/store"
)

// Broadcaster serializes acceptance per chat: id assignment, the store
// append and the bus publish happen under one per-chat mutex, so two
// concurrent sends into the same chat cannot interleave out of order.
// Distinct chats never contend.
type Broadcaster struct {
	chats     store.Conversations
	publisher bus.Publisher
	ids       *snowflake.Node

	mu   sync.Mutex
	seqs map[int64]*sync.Mutex
}

func New(chats store.Conversations, publisher bus.Publisher, ids *snowflake.Node) *Broadcaster {
	return &Broadcaster{
		chats:     chats,
		publisher: publisher,
		ids:       ids,
		seqs:      make(map[int64]*sync.Mutex),
	}
}

func (b *Broadcaster) chatLock(chatID int64) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	mu, ok := b.seqs[chatID]
	if !ok {
		mu = &sync.Mutex{}
		b.seqs[chatID] = mu
	}
	return mu
}

// SendMessage validates, persists and fans out a message. The returned
// message carries the server-assigned id and timestamp and is the sender's
// acknowledgement; socket delivery happens asynchronously via the bus.
func (b *Broadcaster) SendMessage(ctx context.Context, chatID int64, sender string, senderID int64, text string) (model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Message{}, fmt.Errorf("empty message: %w", model.ErrValidation)
	}
	if chatID <= 0 {
		return model.Message{}, fmt.Errorf("bad chat id %d: %w", chatID, model.ErrValidation)
	}

	mu := b.chatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	msg := model.Message{
		ID:        b.ids.Generate(),
		ChatID:    chatID,
		Sender:    sender,
		SenderID:  senderID,
		Content:   text,
		Timestamp: time.Now(),
	}

	// Persist before fan-out: anything a client ever receives is already
	// durable, so a reconnecting client can always re-fetch it.
	if err := b.chats.AppendMessage(ctx, msg); err != nil {
		return model.Message{}, err
	}

	ev := model.Event{
		Type:      model.EventNewMessage,
		ChatID:    chatID,
		Sender:    sender,
		SenderID:  senderID,
		Message:   text,
		MessageID: msg.ID,
		Timestamp: msg.Timestamp.Unix(),
	}
	if err := b.publisher.Publish(ctx, ev); err != nil {
		return model.Message{}, fmt.Errorf("message %d accepted but not announced: %w", msg.ID, err)
	}
	return msg, nil
}

// AddParticipant persists the membership change, then announces it to the
// room. The publish happens strictly after the write so a client that reacts
// by re-fetching participants never sees stale data.
func (b *Broadcaster) AddParticipant(ctx context.Context, chatID int64, username, addedBy string) error {
	mu := b.chatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	if err := b.chats.AddParticipant(ctx, chatID, username, addedBy); err != nil {
		return err
	}
	return b.publisher.Publish(ctx, model.Event{
		Type:     model.EventUserAdded,
		ChatID:   chatID,
		Username: username,
		AddedBy:  addedBy,
	})
}

// RenameChat persists the new name, then announces it. An empty name clears
// the custom name back to the derived participant-list title.
func (b *Broadcaster) RenameChat(ctx context.Context, chatID int64, newName, renamedBy string) error {
	newName = strings.TrimSpace(newName)

	mu := b.chatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	if err := b.chats.RenameChat(ctx, chatID, newName); err != nil {
		return err
	}
	return b.publisher.Publish(ctx, model.Event{
		Type:      model.EventChatRenamed,
		ChatID:    chatID,
		NewName:   newName,
		RenamedBy: renamedBy,
	})
}
