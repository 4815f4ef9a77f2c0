// Package bus carries events between the api, the gateways and the
// projection consumer. Kafka is the production transport; Loopback serves
// tests and single-process runs.
package bus

import (
	"context"
	"sync"

	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
)

// Publisher accepts events for delivery to every consumer of the topic.
type Publisher interface {
	Publish(ctx context.Context, ev model.Event) error
	Close() error
}

// Loopback dispatches published events synchronously to in-process
// subscribers, preserving publish order.
type Loopback struct {
	mu       sync.RWMutex
	handlers []func(model.Event)
}

var _ Publisher = (*Loopback)(nil)

func NewLoopback() *Loopback {
	return &Loopback{}
}

// Subscribe registers a handler invoked for every subsequent publish.
func (l *Loopback) Subscribe(handler func(model.Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, handler)
}

func (l *Loopback) Publish(ctx context.Context, ev model.Event) error {
	l.mu.RLock()
	handlers := append([]func(model.Event){}, l.handlers...)
	l.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
	return nil
}

func (l *Loopback) Close() error { return nil }
