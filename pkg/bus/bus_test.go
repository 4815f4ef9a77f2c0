package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
)

func TestLoopbackPreservesPublishOrder(t *testing.T) {
	l := NewLoopback()
	var seen []int64
	l.Subscribe(func(ev model.Event) { seen = append(seen, ev.MessageID) })

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, l.Publish(context.Background(), model.Event{
			Type:      model.EventNewMessage,
			ChatID:    1,
			MessageID: i,
		}))
	}

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, seen)
}

func TestLoopbackSubscribeDuringPublish(t *testing.T) {
	l := NewLoopback()
	var late int
	l.Subscribe(func(model.Event) {
		// Handlers run against a snapshot; registering here must neither
		// deadlock nor receive the in-flight event.
		l.Subscribe(func(model.Event) { late++ })
	})

	require.NoError(t, l.Publish(context.Background(), model.Event{Type: model.EventNewMessage}))
	assert.Zero(t, late, "a handler added mid-publish only sees later events")

	require.NoError(t, l.Publish(context.Background(), model.Event{Type: model.EventNewMessage}))
	assert.Equal(t, 1, late)
}

func TestLoopbackFansOutToAllSubscribers(t *testing.T) {
	l := NewLoopback()
	var a, b int
	l.Subscribe(func(model.Event) { a++ })
	l.Subscribe(func(model.Event) { b++ })

	require.NoError(t, l.Publish(context.Background(), model.Event{Type: model.EventUserStatus}))

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
	assert.NoError(t, l.Close())
}
