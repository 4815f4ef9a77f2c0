package model

// EventType discriminates the events carried over the persistent channel and
// the bus.
type EventType string

const (
	EventNewMessage  EventType = "new_message"
	EventUserAdded   EventType = "user_added"
	EventChatRenamed EventType = "chat_renamed"
	EventUserStatus  EventType = "user_status_change"
)

// Status values carried by EventUserStatus events.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Event is the wire envelope for everything a connected client can receive.
// Exactly which fields are set depends on Type:
//
//	new_message        chat_id, sender, sender_id, message, message_id, timestamp
//	user_added         chat_id, username, added_by
//	chat_renamed       chat_id, new_name, renamed_by
//	user_status_change username, status (chat_id scopes delivery, see Room)
//
// Room, when set, overrides chat-id routing and targets a legacy direct room
// keyed by the sorted username pair.
type Event struct {
	Type      EventType `json:"type"`
	ChatID    int64     `json:"chat_id,omitempty"`
	Room      string    `json:"room,omitempty"`
	Sender    string    `json:"sender,omitempty"`
	SenderID  int64     `json:"sender_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	MessageID int64     `json:"message_id,omitempty"`
	Timestamp int64     `json:"timestamp,omitempty"`
	Username  string    `json:"username,omitempty"`
	AddedBy   string    `json:"added_by,omitempty"`
	NewName   string    `json:"new_name,omitempty"`
	RenamedBy string    `json:"renamed_by,omitempty"`
	Status    string    `json:"status,omitempty"`
}
