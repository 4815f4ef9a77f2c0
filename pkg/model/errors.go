package model

import "errors"

// Error taxonomy shared by the store, the broadcaster and the api edge.
// All failures are wrapped around one of these sentinels so callers can map
// them with errors.Is.
var (
	// ErrValidation covers malformed input: empty message text, bad chat id,
	// short usernames and the like. Rejected before any state change.
	ErrValidation = errors.New("validation failed")

	// ErrNotParticipant is returned when the acting user is not a member of
	// the target chat.
	ErrNotParticipant = errors.New("not a participant")

	// ErrNotFound is returned for unknown chats and users.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyMember is returned when adding a user who is already in the
	// chat, or registering a username that already exists.
	ErrAlreadyMember = errors.New("already a member")
)
