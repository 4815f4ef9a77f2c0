package store

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/gocql/gocql"

	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
	"github.com/SalemAitAmi/flask-chat-app/pkg/snowflake"
)

// Session wraps a gocql session with the cluster settings shared by every
// service.
type Session struct {
	*gocql.Session
}

func NewSession(hosts []string, keyspace string) (*Session, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}

	log.Println("Connected to ScyllaDB cluster")
	return &Session{Session: session}, nil
}

// Scylla implements Store on top of ScyllaDB.
type Scylla struct {
	session *Session
	ids     *snowflake.Node
}

var _ Store = (*Scylla)(nil)

func NewScylla(session *Session, ids *snowflake.Node) *Scylla {
	return &Scylla{session: session, ids: ids}
}

func (s *Scylla) AppendMessage(ctx context.Context, msg model.Message) error {
	member, err := s.IsParticipant(ctx, msg.ChatID, msg.Sender)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("append message to chat %d: %w", msg.ChatID, model.ErrNotParticipant)
	}

	query := `INSERT INTO messages (chat_id, id, sender, sender_id, content, ts) VALUES (?, ?, ?, ?, ?, ?)`
	return s.session.Query(query,
		msg.ChatID, msg.ID, msg.Sender, msg.SenderID, msg.Content, msg.Timestamp,
	).WithContext(ctx).Exec()
}

func (s *Scylla) History(ctx context.Context, chatID int64) ([]model.Message, error) {
	iter := s.session.Query(
		`SELECT chat_id, id, sender, sender_id, content, ts FROM messages WHERE chat_id = ?`,
		chatID,
	).WithContext(ctx).Iter()

	var messages []model.Message
	var m model.Message
	for iter.Scan(&m.ChatID, &m.ID, &m.Sender, &m.SenderID, &m.Content, &m.Timestamp) {
		messages = append(messages, m)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *Scylla) Participants(ctx context.Context, chatID int64) ([]model.Participant, error) {
	iter := s.session.Query(
		`SELECT username, user_id, added_by, added_at FROM chat_participants WHERE chat_id = ?`,
		chatID,
	).WithContext(ctx).Iter()

	var participants []model.Participant
	var p model.Participant
	for iter.Scan(&p.Username, &p.UserID, &p.AddedBy, &p.AddedAt) {
		participants = append(participants, p)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return participants, nil
}

func (s *Scylla) GetChat(ctx context.Context, chatID int64) (model.Chat, error) {
	var c model.Chat
	err := s.session.Query(
		`SELECT id, name, is_group, created_at, last_message_at FROM chats WHERE id = ?`,
		chatID,
	).WithContext(ctx).Scan(&c.ID, &c.Name, &c.IsGroup, &c.CreatedAt, &c.LastMessageAt)
	if err == gocql.ErrNotFound {
		return model.Chat{}, fmt.Errorf("chat %d: %w", chatID, model.ErrNotFound)
	}
	if err != nil {
		return model.Chat{}, err
	}

	c.Participants, err = s.Participants(ctx, chatID)
	if err != nil {
		return model.Chat{}, err
	}
	return c, nil
}

func (s *Scylla) CreateChat(ctx context.Context, usernames []string) (int64, error) {
	if len(usernames) < 2 {
		return 0, fmt.Errorf("a chat needs at least two participants: %w", model.ErrValidation)
	}
	if len(usernames) > model.MaxGroupSize {
		return 0, fmt.Errorf("group chats are capped at %d participants: %w", model.MaxGroupSize, model.ErrValidation)
	}

	users := make(map[string]model.User, len(usernames))
	for _, name := range usernames {
		u, err := s.GetUser(ctx, name)
		if err != nil {
			return 0, err
		}
		users[name] = u
	}

	// A direct pair may only have one conversation.
	if len(usernames) == 2 {
		if id, ok := s.findDirectChat(ctx, usernames[0], usernames[1]); ok {
			return id, nil
		}
	}

	now := time.Now()
	chatID := s.ids.Generate()
	isGroup := len(usernames) > 2

	if err := s.session.Query(
		`INSERT INTO chats (id, name, is_group, created_at, last_message_at) VALUES (?, '', ?, ?, ?)`,
		chatID, isGroup, now, now,
	).WithContext(ctx).Exec(); err != nil {
		return 0, err
	}

	creator := usernames[0]
	for _, name := range usernames {
		if err := s.insertParticipant(ctx, chatID, users[name], creator, now); err != nil {
			return 0, err
		}
	}
	return chatID, nil
}

func (s *Scylla) findDirectChat(ctx context.Context, u1, u2 string) (int64, bool) {
	chats, err := s.UserChats(ctx, u1)
	if err != nil {
		return 0, false
	}
	want := []string{u1, u2}
	sort.Strings(want)
	for _, id := range chats {
		ps, err := s.Participants(ctx, id)
		if err != nil || len(ps) != 2 {
			continue
		}
		have := []string{ps[0].Username, ps[1].Username}
		sort.Strings(have)
		if have[0] == want[0] && have[1] == want[1] {
			return id, true
		}
	}
	return 0, false
}

func (s *Scylla) insertParticipant(ctx context.Context, chatID int64, u model.User, addedBy string, at time.Time) error {
	if err := s.session.Query(
		`INSERT INTO chat_participants (chat_id, username, user_id, added_by, added_at) VALUES (?, ?, ?, ?, ?)`,
		chatID, u.Username, u.ID, addedBy, at,
	).WithContext(ctx).Exec(); err != nil {
		return err
	}
	return s.session.Query(
		`INSERT INTO user_chats (username, chat_id) VALUES (?, ?)`,
		u.Username, chatID,
	).WithContext(ctx).Exec()
}

func (s *Scylla) AddParticipant(ctx context.Context, chatID int64, username, addedBy string) error {
	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	for _, p := range chat.Participants {
		if p.Username == username {
			return fmt.Errorf("%s in chat %d: %w", username, chatID, model.ErrAlreadyMember)
		}
	}
	if len(chat.Participants) >= model.MaxGroupSize {
		return fmt.Errorf("group chats are capped at %d participants: %w", model.MaxGroupSize, model.ErrValidation)
	}

	u, err := s.GetUser(ctx, username)
	if err != nil {
		return err
	}

	// Adding a third user turns a direct chat into a group chat.
	if !chat.IsGroup {
		if err := s.session.Query(
			`UPDATE chats SET is_group = true WHERE id = ?`, chatID,
		).WithContext(ctx).Exec(); err != nil {
			return err
		}
	}
	return s.insertParticipant(ctx, chatID, u, addedBy, time.Now())
}

func (s *Scylla) RenameChat(ctx context.Context, chatID int64, newName string) error {
	if _, err := s.GetChat(ctx, chatID); err != nil {
		return err
	}
	return s.session.Query(
		`UPDATE chats SET name = ? WHERE id = ?`, newName, chatID,
	).WithContext(ctx).Exec()
}

func (s *Scylla) UserChats(ctx context.Context, username string) ([]int64, error) {
	iter := s.session.Query(
		`SELECT chat_id FROM user_chats WHERE username = ?`, username,
	).WithContext(ctx).Iter()

	var ids []int64
	var id int64
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Scylla) IsParticipant(ctx context.Context, chatID int64, username string) (bool, error) {
	var found string
	err := s.session.Query(
		`SELECT username FROM chat_participants WHERE chat_id = ? AND username = ?`,
		chatID, username,
	).WithContext(ctx).Scan(&found)
	if err == gocql.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Scylla) TouchChat(ctx context.Context, chatID int64, at int64) error {
	return s.session.Query(
		`UPDATE chats SET last_message_at = ? WHERE id = ?`,
		time.Unix(at, 0), chatID,
	).WithContext(ctx).Exec()
}

func (s *Scylla) AddUser(ctx context.Context, username, passwordHash string) (model.User, error) {
	u := model.User{
		ID:        s.ids.Generate(),
		Username:  username,
		Password:  passwordHash,
		Timezone:  "UTC",
		CreatedAt: time.Now(),
	}

	// LWT so two concurrent registrations of the same name cannot both win.
	applied, err := s.session.Query(
		`INSERT INTO users (username, id, password, timezone, created_at) VALUES (?, ?, ?, ?, ?) IF NOT EXISTS`,
		u.Username, u.ID, u.Password, u.Timezone, u.CreatedAt,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return model.User{}, err
	}
	if !applied {
		return model.User{}, fmt.Errorf("user %s: %w", username, model.ErrAlreadyMember)
	}
	return u, nil
}

func (s *Scylla) GetUser(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := s.session.Query(
		`SELECT username, id, password, timezone, created_at FROM users WHERE username = ?`,
		username,
	).WithContext(ctx).Scan(&u.Username, &u.ID, &u.Password, &u.Timezone, &u.CreatedAt)
	if err == gocql.ErrNotFound {
		return model.User{}, fmt.Errorf("user %s: %w", username, model.ErrNotFound)
	}
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (s *Scylla) AllUsers(ctx context.Context) ([]model.User, error) {
	iter := s.session.Query(
		`SELECT username, id, timezone, created_at FROM users`,
	).WithContext(ctx).Iter()

	var users []model.User
	var u model.User
	for iter.Scan(&u.Username, &u.ID, &u.Timezone, &u.CreatedAt) {
		users = append(users, u)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Scylla) UpdateTimezone(ctx context.Context, username, tz string) error {
	if _, err := s.GetUser(ctx, username); err != nil {
		return err
	}
	return s.session.Query(
		`UPDATE users SET timezone = ? WHERE username = ?`, tz, username,
	).WithContext(ctx).Exec()
}
