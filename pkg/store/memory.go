package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
)

// Memory implements Store entirely in process memory. It backs the test
// suites and the single-binary dev mode; it deliberately returns history in
// insertion-scrambled order so callers cannot grow a dependency on it.
type Memory struct {
	mu       sync.RWMutex
	nextID   int64
	users    map[string]model.User
	chats    map[int64]*model.Chat
	messages map[int64][]model.Message
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]model.User),
		chats:    make(map[int64]*model.Chat),
		messages: make(map[int64][]model.Message),
	}
}

func (m *Memory) nextIDLocked() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) AppendMessage(ctx context.Context, msg model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.chats[msg.ChatID]
	if !ok {
		return fmt.Errorf("chat %d: %w", msg.ChatID, model.ErrNotFound)
	}
	if !lo.ContainsBy(chat.Participants, func(p model.Participant) bool { return p.Username == msg.Sender }) {
		return fmt.Errorf("append message to chat %d: %w", msg.ChatID, model.ErrNotParticipant)
	}

	m.messages[msg.ChatID] = append(m.messages[msg.ChatID], msg)
	return nil
}

func (m *Memory) History(ctx context.Context, chatID int64) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.chats[chatID]; !ok {
		return nil, fmt.Errorf("chat %d: %w", chatID, model.ErrNotFound)
	}

	msgs := append([]model.Message(nil), m.messages[chatID]...)
	// Reverse so ordered delivery is never an accident of insertion order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (m *Memory) Participants(ctx context.Context, chatID int64) ([]model.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chat, ok := m.chats[chatID]
	if !ok {
		return nil, fmt.Errorf("chat %d: %w", chatID, model.ErrNotFound)
	}
	return append([]model.Participant(nil), chat.Participants...), nil
}

func (m *Memory) GetChat(ctx context.Context, chatID int64) (model.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chat, ok := m.chats[chatID]
	if !ok {
		return model.Chat{}, fmt.Errorf("chat %d: %w", chatID, model.ErrNotFound)
	}
	out := *chat
	out.Participants = append([]model.Participant(nil), chat.Participants...)
	return out, nil
}

func (m *Memory) CreateChat(ctx context.Context, usernames []string) (int64, error) {
	if len(usernames) < 2 {
		return 0, fmt.Errorf("a chat needs at least two participants: %w", model.ErrValidation)
	}
	if len(usernames) > model.MaxGroupSize {
		return 0, fmt.Errorf("group chats are capped at %d participants: %w", model.MaxGroupSize, model.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range usernames {
		if _, ok := m.users[name]; !ok {
			return 0, fmt.Errorf("user %s: %w", name, model.ErrNotFound)
		}
	}

	if len(usernames) == 2 {
		want := append([]string(nil), usernames...)
		sort.Strings(want)
		for id, chat := range m.chats {
			if len(chat.Participants) != 2 {
				continue
			}
			have := lo.Map(chat.Participants, func(p model.Participant, _ int) string { return p.Username })
			sort.Strings(have)
			if have[0] == want[0] && have[1] == want[1] {
				return id, nil
			}
		}
	}

	now := time.Now()
	chat := &model.Chat{
		ID:            m.nextIDLocked(),
		IsGroup:       len(usernames) > 2,
		CreatedAt:     now,
		LastMessageAt: now,
	}
	creator := usernames[0]
	for _, name := range usernames {
		chat.Participants = append(chat.Participants, model.Participant{
			Username: name,
			UserID:   m.users[name].ID,
			AddedBy:  creator,
			AddedAt:  now,
		})
	}
	m.chats[chat.ID] = chat
	return chat.ID, nil
}

func (m *Memory) AddParticipant(ctx context.Context, chatID int64, username, addedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.chats[chatID]
	if !ok {
		return fmt.Errorf("chat %d: %w", chatID, model.ErrNotFound)
	}
	user, ok := m.users[username]
	if !ok {
		return fmt.Errorf("user %s: %w", username, model.ErrNotFound)
	}
	if lo.ContainsBy(chat.Participants, func(p model.Participant) bool { return p.Username == username }) {
		return fmt.Errorf("%s in chat %d: %w", username, chatID, model.ErrAlreadyMember)
	}
	if len(chat.Participants) >= model.MaxGroupSize {
		return fmt.Errorf("group chats are capped at %d participants: %w", model.MaxGroupSize, model.ErrValidation)
	}

	chat.IsGroup = true
	chat.Participants = append(chat.Participants, model.Participant{
		Username: username,
		UserID:   user.ID,
		AddedBy:  addedBy,
		AddedAt:  time.Now(),
	})
	return nil
}

func (m *Memory) RenameChat(ctx context.Context, chatID int64, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.chats[chatID]
	if !ok {
		return fmt.Errorf("chat %d: %w", chatID, model.ErrNotFound)
	}
	chat.Name = newName
	return nil
}

func (m *Memory) UserChats(ctx context.Context, username string) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []int64
	for id, chat := range m.chats {
		if lo.ContainsBy(chat.Participants, func(p model.Participant) bool { return p.Username == username }) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) IsParticipant(ctx context.Context, chatID int64, username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chat, ok := m.chats[chatID]
	if !ok {
		return false, nil
	}
	return lo.ContainsBy(chat.Participants, func(p model.Participant) bool { return p.Username == username }), nil
}

func (m *Memory) TouchChat(ctx context.Context, chatID int64, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.chats[chatID]
	if !ok {
		return fmt.Errorf("chat %d: %w", chatID, model.ErrNotFound)
	}
	chat.LastMessageAt = time.Unix(at, 0)
	return nil
}

func (m *Memory) AddUser(ctx context.Context, username, passwordHash string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[username]; ok {
		return model.User{}, fmt.Errorf("user %s: %w", username, model.ErrAlreadyMember)
	}
	u := model.User{
		ID:        m.nextIDLocked(),
		Username:  username,
		Password:  passwordHash,
		Timezone:  "UTC",
		CreatedAt: time.Now(),
	}
	m.users[username] = u
	return u, nil
}

func (m *Memory) GetUser(ctx context.Context, username string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[username]
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", username, model.ErrNotFound)
	}
	return u, nil
}

func (m *Memory) AllUsers(ctx context.Context) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := lo.Values(m.users)
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *Memory) UpdateTimezone(ctx context.Context, username, tz string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return fmt.Errorf("user %s: %w", username, model.ErrNotFound)
	}
	u.Timezone = tz
	m.users[username] = u
	return nil
}
