// Package store is the Conversation Store boundary: durable chats,
// participants, messages and user accounts behind a narrow interface.
// The engine only ever appends messages and reads state back; everything
// transient (rooms, presence) lives elsewhere and survives nothing.
package store

import (
	"context"

	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
)

// Conversations is the read/append interface the synchronization engine
// consumes. History makes no ordering promise; callers sort.
type Conversations interface {
	// AppendMessage persists an accepted message. The caller has already
	// assigned the id and timestamp. Fails with model.ErrNotParticipant if
	// the sender is not a member of the chat.
	AppendMessage(ctx context.Context, msg model.Message) error

	// History returns all messages of a chat in unspecified order.
	History(ctx context.Context, chatID int64) ([]model.Message, error)

	// Participants returns the current membership of a chat.
	Participants(ctx context.Context, chatID int64) ([]model.Participant, error)

	// GetChat returns the chat record with participants populated.
	GetChat(ctx context.Context, chatID int64) (model.Chat, error)

	// CreateChat creates a conversation between the given users. Two users
	// make a direct chat, three or more a group chat (max 16).
	CreateChat(ctx context.Context, usernames []string) (int64, error)

	// AddParticipant adds username to a chat. Fails with model.ErrNotFound
	// for unknown users/chats and model.ErrAlreadyMember on duplicates.
	AddParticipant(ctx context.Context, chatID int64, username, addedBy string) error

	// RenameChat sets the chat's display name. An empty name clears it.
	RenameChat(ctx context.Context, chatID int64, newName string) error

	// UserChats lists the chat ids the user participates in.
	UserChats(ctx context.Context, username string) ([]int64, error)

	// IsParticipant reports membership without fetching the full list.
	IsParticipant(ctx context.Context, chatID int64, username string) (bool, error)

	// TouchChat records the timestamp of the chat's newest message.
	TouchChat(ctx context.Context, chatID int64, at int64) error
}

// Users is the account side of the store, consumed only by the api edge.
type Users interface {
	// AddUser registers a new account. Fails with model.ErrAlreadyMember if
	// the username is taken.
	AddUser(ctx context.Context, username, passwordHash string) (model.User, error)

	GetUser(ctx context.Context, username string) (model.User, error)
	AllUsers(ctx context.Context) ([]model.User, error)
	UpdateTimezone(ctx context.Context, username, tz string) error
}

// Store is the full persistence surface.
type Store interface {
	Conversations
	Users
}
