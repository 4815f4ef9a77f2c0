package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/samber/lo"

	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
)

type sendMessageRequest struct {
	ChatID  int64  `json:"chat_id" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// SendMessageHandler accepts a message for a chat. The response acknowledges
// acceptance with the server-assigned id and timestamp; delivery to the
// room's connections happens asynchronously.
func (s *server) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", model.ErrValidation))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, fmt.Errorf("chat_id and message are required: %w", model.ErrValidation))
		return
	}

	msg, err := s.broadcaster.SendMessage(r.Context(), req.ChatID, claims.Username, claims.UserID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{
		"message":    "Message sent",
		"message_id": msg.ID,
		"timestamp":  msg.Timestamp.Unix(),
	})
}

type createChatRequest struct {
	Participants []string `json:"participants" validate:"required,min=1"`
}

// CreateChatHandler creates a conversation. The requester is always included.
func (s *server) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", model.ErrValidation))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, fmt.Errorf("no participants specified: %w", model.ErrValidation))
		return
	}

	participants := req.Participants
	if !lo.Contains(participants, claims.Username) {
		participants = append(participants, claims.Username)
	}

	chatID, err := s.store.CreateChat(r.Context(), participants)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"chat_id": chatID})
}

type addUserRequest struct {
	ChatID   int64  `json:"chat_id" validate:"required"`
	Username string `json:"username" validate:"required"`
}

// AddUserHandler adds a user to a chat and announces it to the room.
func (s *server) AddUserHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req addUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", model.ErrValidation))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, fmt.Errorf("chat_id and username are required: %w", model.ErrValidation))
		return
	}

	if err := s.requireMember(r, req.ChatID, claims.Username); err != nil {
		writeError(w, err)
		return
	}

	if err := s.broadcaster.AddParticipant(r.Context(), req.ChatID, req.Username, claims.Username); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"message": "User added successfully"})
}

type renameChatRequest struct {
	ChatID int64  `json:"chat_id" validate:"required"`
	Name   string `json:"name"`
}

// RenameChatHandler updates the chat's display name. An empty name reverts
// clients to the derived participant-list title.
func (s *server) RenameChatHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req renameChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", model.ErrValidation))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, fmt.Errorf("chat_id is required: %w", model.ErrValidation))
		return
	}

	if err := s.requireMember(r, req.ChatID, claims.Username); err != nil {
		writeError(w, err)
		return
	}

	if err := s.broadcaster.RenameChat(r.Context(), req.ChatID, req.Name, claims.Username); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"message": "Chat renamed successfully"})
}

// ChatsHandler lists the requester's chats with metadata for the chat-select
// page, newest activity first.
func (s *server) ChatsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ids, err := s.store.UserChats(r.Context(), claims.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	chats := make([]model.Chat, 0, len(ids))
	for _, id := range ids {
		chat, err := s.store.GetChat(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		chats = append(chats, chat)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].LastMessageAt.After(chats[j].LastMessageAt) })
	writeOK(w, map[string]any{"chats": chats})
}

// ChatHandler returns one chat with its full message history. The history is
// returned as fetched; clients sort by timestamp before rendering.
func (s *server) ChatHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := strconv.ParseInt(r.PathValue("chatID"), 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("bad chat id: %w", model.ErrValidation))
		return
	}

	if err := s.requireMember(r, chatID, claims.Username); err != nil {
		writeError(w, err)
		return
	}

	chat, err := s.store.GetChat(r.Context(), chatID)
	if err != nil {
		writeError(w, err)
		return
	}
	history, err := s.store.History(r.Context(), chatID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"chat": chat, "messages": history})
}

// UsersHandler lists all usernames except the requester, for the new-chat
// autocomplete.
func (s *server) UsersHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	users, err := s.store.AllUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	names := lo.FilterMap(users, func(u model.User, _ int) (string, bool) {
		return u.Username, u.Username != claims.Username
	})
	writeOK(w, map[string]any{"users": names})
}

type timezoneRequest struct {
	Timezone string `json:"timezone"`
}

// TimezoneHandler stores the user's display timezone preference.
func (s *server) TimezoneHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req timezoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", model.ErrValidation))
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	if err := s.store.UpdateTimezone(r.Context(), claims.Username, req.Timezone); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// requireMember rejects requests from users outside the chat.
func (s *server) requireMember(r *http.Request, chatID int64, username string) error {
	member, err := s.store.IsParticipant(r.Context(), chatID, username)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("chat %d: %w", chatID, model.ErrNotParticipant)
	}
	return nil
}
