package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SalemAitAmi/flask-chat-app/pkg/bus"
	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
	"github.com/SalemAitAmi/flask-chat-app/pkg/snowflake"
	"github.com/SalemAitAmi/flask-chat-app/pkg/store"
)

func newTestBroadcaster(t *testing.T) (*Broadcaster, *store.Memory, *bus.Loopback, int64) {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemory()
	for _, name := range []string{"alice", "boby"} {
		_, err := st.AddUser(ctx, name, "hash")
		require.NoError(t, err)
	}
	chatID, err := st.CreateChat(ctx, []string{"alice", "boby"})
	require.NoError(t, err)

	loopback := bus.NewLoopback()
	ids, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(st, loopback, ids), st, loopback, chatID
}

func TestSendMessageRejectsEmptyText(t *testing.T) {
	b, _, loopback, chatID := newTestBroadcaster(t)

	var published int
	loopback.Subscribe(func(model.Event) { published++ })

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := b.SendMessage(context.Background(), chatID, "alice", 1, text)
		assert.ErrorIs(t, err, model.ErrValidation)
	}
	assert.Zero(t, published, "rejected sends must not fan out")
}

func TestSendMessageRejectsBadChatID(t *testing.T) {
	b, _, _, _ := newTestBroadcaster(t)

	_, err := b.SendMessage(context.Background(), 0, "alice", 1, "hi")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	b, st, loopback, chatID := newTestBroadcaster(t)
	_, err := st.AddUser(context.Background(), "mallory", "hash")
	require.NoError(t, err)

	var published int
	loopback.Subscribe(func(model.Event) { published++ })

	_, err = b.SendMessage(context.Background(), chatID, "mallory", 99, "let me in")
	assert.ErrorIs(t, err, model.ErrNotParticipant)
	assert.Zero(t, published)
}

func TestSendMessagePersistsBeforeFanOut(t *testing.T) {
	b, st, loopback, chatID := newTestBroadcaster(t)

	loopback.Subscribe(func(ev model.Event) {
		// By the time any subscriber sees the event, the message is durable.
		history, err := st.History(context.Background(), chatID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, ev.MessageID, history[0].ID)
	})

	msg, err := b.SendMessage(context.Background(), chatID, "alice", 1, "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Content, "text is trimmed before persistence")
	assert.NotZero(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestConcurrentSendsKeepChatOrder(t *testing.T) {
	b, _, loopback, chatID := newTestBroadcaster(t)

	var mu sync.Mutex
	var observed []int64
	loopback.Subscribe(func(ev model.Event) {
		mu.Lock()
		defer mu.Unlock()
		if ev.ChatID == chatID {
			observed = append(observed, ev.MessageID)
		}
	})

	const senders = 20
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := b.SendMessage(context.Background(), chatID, "alice", 1, fmt.Sprintf("message %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Acceptance is serialized per chat, so ids must be observed strictly
	// ascending: every client sees the same relative order.
	require.Len(t, observed, senders)
	for i := 1; i < len(observed); i++ {
		assert.Greater(t, observed[i], observed[i-1])
	}
}

func TestAddParticipantPersistsThenAnnounces(t *testing.T) {
	b, st, loopback, chatID := newTestBroadcaster(t)
	_, err := st.AddUser(context.Background(), "ryan", "hash")
	require.NoError(t, err)

	var events []model.Event
	loopback.Subscribe(func(ev model.Event) {
		// The membership change must already be readable.
		member, err := st.IsParticipant(context.Background(), chatID, "ryan")
		require.NoError(t, err)
		assert.True(t, member)
		events = append(events, ev)
	})

	require.NoError(t, b.AddParticipant(context.Background(), chatID, "ryan", "alice"))
	require.Len(t, events, 1)
	assert.Equal(t, model.EventUserAdded, events[0].Type)
	assert.Equal(t, "ryan", events[0].Username)
	assert.Equal(t, "alice", events[0].AddedBy)
}

func TestAddParticipantDuplicateDoesNotAnnounce(t *testing.T) {
	b, _, loopback, chatID := newTestBroadcaster(t)

	var published int
	loopback.Subscribe(func(model.Event) { published++ })

	err := b.AddParticipant(context.Background(), chatID, "boby", "alice")
	assert.ErrorIs(t, err, model.ErrAlreadyMember)
	assert.Zero(t, published)
}

func TestRenameChatPersistsThenAnnounces(t *testing.T) {
	b, st, loopback, chatID := newTestBroadcaster(t)

	var events []model.Event
	loopback.Subscribe(func(ev model.Event) {
		chat, err := st.GetChat(context.Background(), chatID)
		require.NoError(t, err)
		assert.Equal(t, "Team", chat.Name)
		events = append(events, ev)
	})

	require.NoError(t, b.RenameChat(context.Background(), chatID, " Team ", "alice"))
	require.Len(t, events, 1)
	assert.Equal(t, model.EventChatRenamed, events[0].Type)
	assert.Equal(t, "Team", events[0].NewName, "name is trimmed")
}

func TestRenameUnknownChat(t *testing.T) {
	b, _, _, _ := newTestBroadcaster(t)

	err := b.RenameChat(context.Background(), 9999, "Team", "alice")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
