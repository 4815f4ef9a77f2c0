package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
)

func newSeededMemory(t *testing.T, usernames ...string) *Memory {
	t.Helper()
	m := NewMemory()
	for _, name := range usernames {
		_, err := m.AddUser(context.Background(), name, "hash")
		require.NoError(t, err)
	}
	return m
}

func TestCreateChatValidatesSize(t *testing.T) {
	ctx := context.Background()
	m := newSeededMemory(t, "alice", "boby")

	_, err := m.CreateChat(ctx, []string{"alice"})
	assert.ErrorIs(t, err, model.ErrValidation)

	oversized := make([]string, model.MaxGroupSize+1)
	for i := range oversized {
		oversized[i] = fmt.Sprintf("user%d", i)
	}
	_, err = m.CreateChat(ctx, oversized)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestCreateChatRequiresKnownUsers(t *testing.T) {
	m := newSeededMemory(t, "alice")

	_, err := m.CreateChat(context.Background(), []string{"alice", "ghost"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateDirectChatIsDeduplicated(t *testing.T) {
	ctx := context.Background()
	m := newSeededMemory(t, "alice", "boby", "ryan")

	first, err := m.CreateChat(ctx, []string{"alice", "boby"})
	require.NoError(t, err)

	again, err := m.CreateChat(ctx, []string{"boby", "alice"})
	require.NoError(t, err)
	assert.Equal(t, first, again, "same pair in either order resolves to the existing chat")

	other, err := m.CreateChat(ctx, []string{"alice", "ryan"})
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestCreateGroupChatsAreNeverDeduplicated(t *testing.T) {
	ctx := context.Background()
	m := newSeededMemory(t, "alice", "boby", "ryan")

	first, err := m.CreateChat(ctx, []string{"alice", "boby", "ryan"})
	require.NoError(t, err)
	second, err := m.CreateChat(ctx, []string{"alice", "boby", "ryan"})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	chat, err := m.GetChat(ctx, first)
	require.NoError(t, err)
	assert.True(t, chat.IsGroup)
	require.Len(t, chat.Participants, 3)
	assert.Equal(t, "alice", chat.Participants[1].AddedBy, "creator is recorded on every membership")
}

func TestAppendMessageRejectsNonParticipant(t *testing.T) {
	ctx := context.Background()
	m := newSeededMemory(t, "alice", "boby", "ryan")
	chatID, err := m.CreateChat(ctx, []string{"alice", "boby"})
	require.NoError(t, err)

	err = m.AppendMessage(ctx, model.Message{ChatID: chatID, Sender: "ryan", Content: "let me in"})
	assert.ErrorIs(t, err, model.ErrNotParticipant)

	err = m.AppendMessage(ctx, model.Message{ChatID: 999, Sender: "alice", Content: "hi"})
	assert.ErrorIs(t, err, model.ErrNotFound)

	history, err := m.History(ctx, chatID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistoryMakesNoOrderingPromise(t *testing.T) {
	ctx := context.Background()
	m := newSeededMemory(t, "alice", "boby")
	chatID, err := m.CreateChat(ctx, []string{"alice", "boby"})
	require.NoError(t, err)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, m.AppendMessage(ctx, model.Message{
			ID: i, ChatID: chatID, Sender: "alice", Content: fmt.Sprintf("m%d", i),
			Timestamp: time.Unix(1000+i, 0),
		}))
	}

	history, err := m.History(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, int64(3), history[0].ID, "bulk fetch comes back unsorted on purpose")
}

func TestAddParticipant(t *testing.T) {
	ctx := context.Background()
	m := newSeededMemory(t, "alice", "boby", "ryan")
	chatID, err := m.CreateChat(ctx, []string{"alice", "boby"})
	require.NoError(t, err)

	require.NoError(t, m.AddParticipant(ctx, chatID, "ryan", "alice"))

	chat, err := m.GetChat(ctx, chatID)
	require.NoError(t, err)
	assert.True(t, chat.IsGroup, "a direct chat becomes a group when a third member joins")
	assert.Len(t, chat.Participants, 3)

	err = m.AddParticipant(ctx, chatID, "ryan", "alice")
	assert.ErrorIs(t, err, model.ErrAlreadyMember)

	err = m.AddParticipant(ctx, chatID, "ghost", "alice")
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = m.AddParticipant(ctx, 999, "ryan", "alice")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAddParticipantEnforcesGroupCap(t *testing.T) {
	ctx := context.Background()
	names := make([]string, model.MaxGroupSize)
	for i := range names {
		names[i] = fmt.Sprintf("user%d", i)
	}
	m := newSeededMemory(t, append(names, "extra")...)

	chatID, err := m.CreateChat(ctx, names)
	require.NoError(t, err)

	err = m.AddParticipant(ctx, chatID, "extra", names[0])
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestRenameChat(t *testing.T) {
	ctx := context.Background()
	m := newSeededMemory(t, "alice", "boby")
	chatID, err := m.CreateChat(ctx, []string{"alice", "boby"})
	require.NoError(t, err)

	require.NoError(t, m.RenameChat(ctx, chatID, "Plans"))
	chat, err := m.GetChat(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, "Plans", chat.Name)

	require.NoError(t, m.RenameChat(ctx, chatID, ""))
	chat, err = m.GetChat(ctx, chatID)
	require.NoError(t, err)
	assert.Empty(t, chat.Name)

	assert.ErrorIs(t, m.RenameChat(ctx, 999, "Plans"), model.ErrNotFound)
}

func TestUserChatsAndMembership(t *testing.T) {
	ctx := context.Background()
	m := newSeededMemory(t, "alice", "boby", "ryan")
	c1, err := m.CreateChat(ctx, []string{"alice", "boby"})
	require.NoError(t, err)
	c2, err := m.CreateChat(ctx, []string{"alice", "boby", "ryan"})
	require.NoError(t, err)

	ids, err := m.UserChats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []int64{c1, c2}, ids)

	ids, err = m.UserChats(ctx, "ryan")
	require.NoError(t, err)
	assert.Equal(t, []int64{c2}, ids)

	ok, err := m.IsParticipant(ctx, c1, "ryan")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.IsParticipant(ctx, 999, "alice")
	require.NoError(t, err)
	assert.False(t, ok, "unknown chat is simply not a membership")
}

func TestTouchChatUpdatesLastMessageAt(t *testing.T) {
	ctx := context.Background()
	m := newSeededMemory(t, "alice", "boby")
	chatID, err := m.CreateChat(ctx, []string{"alice", "boby"})
	require.NoError(t, err)

	at := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	require.NoError(t, m.TouchChat(ctx, chatID, at.Unix()))

	chat, err := m.GetChat(ctx, chatID)
	require.NoError(t, err)
	assert.True(t, chat.LastMessageAt.Equal(at))
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	u, err := m.AddUser(ctx, "alice", "hash")
	require.NoError(t, err)
	assert.Equal(t, "UTC", u.Timezone)

	_, err = m.AddUser(ctx, "alice", "other")
	assert.ErrorIs(t, err, model.ErrAlreadyMember)

	require.NoError(t, m.UpdateTimezone(ctx, "alice", "America/Vancouver"))
	u, err = m.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "America/Vancouver", u.Timezone)

	_, err = m.GetUser(ctx, "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, m.UpdateTimezone(ctx, "ghost", "UTC"), model.ErrNotFound)

	_, err = m.AddUser(ctx, "boby", "hash")
	require.NoError(t, err)
	users, err := m.AllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
}
