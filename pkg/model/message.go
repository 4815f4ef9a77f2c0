package model

import "time"

// Message is a persisted chat message. Messages are immutable once accepted;
// the server assigns both the id and the timestamp, and within a chat id order
// equals timestamp order (ties broken by acceptance order).
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Sender    string    `json:"sender"`
	SenderID  int64     `json:"sender_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Participant is a user's membership record in a chat.
type Participant struct {
	Username string    `json:"username"`
	UserID   int64     `json:"user_id"`
	AddedBy  string    `json:"added_by,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// Chat is a conversation between two or more users. A direct chat has exactly
// two participants and no custom name; a group chat has 2-16 participants.
type Chat struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	IsGroup       bool          `json:"is_group"`
	CreatedAt     time.Time     `json:"created_at"`
	LastMessageAt time.Time     `json:"last_message_at"`
	Participants  []Participant `json:"participants,omitempty"`
}

// User is an account record. Password holds the bcrypt hash, never plaintext.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

// MaxGroupSize bounds group chat membership.
const MaxGroupSize = 16
