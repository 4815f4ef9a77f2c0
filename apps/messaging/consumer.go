package main

import (
	"context"
	"log"

	"github.com/SalemAitAmi/flask-chat-app/pkg/bus"
	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
	"github.com/SalemAitAmi/flask-chat-app/pkg/store"
)

// Projector keeps chat metadata in step with the message stream: every
// accepted message bumps the chat's last_message_at so the chat list sorts by
// recent activity. Messages themselves are already durable before the event
// is published, so this consumer only maintains derived state.
type Projector struct {
	chats store.Conversations
}

func NewProjector(chats store.Conversations) *Projector {
	return &Projector{chats: chats}
}

// Handle applies one event. Ephemeral event kinds are skipped.
func (p *Projector) Handle(ctx context.Context, ev model.Event) {
	if ev.Type != model.EventNewMessage || ev.ChatID == 0 {
		return
	}

	if err := p.chats.TouchChat(ctx, ev.ChatID, ev.Timestamp); err != nil {
		log.Printf("failed to touch chat %d: %v", ev.ChatID, err)
	}
}

// Run consumes the topic with the shared group id, so the projection is
// applied exactly once across however many instances run.
func (p *Projector) Run(ctx context.Context, consumer *bus.KafkaConsumer) error {
	return consumer.Run(ctx, func(ev model.Event) {
		p.Handle(ctx, ev)
	})
}
