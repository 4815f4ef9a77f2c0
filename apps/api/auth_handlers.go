package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/SalemAitAmi/flask-chat-app/pkg/auth"
	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginHandler verifies credentials and issues a bearer token.
func (s *server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", model.ErrValidation))
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, fmt.Errorf("username and password are required: %w", model.ErrValidation))
		return
	}

	user, err := s.store.GetUser(r.Context(), req.Username)
	if err != nil || !auth.CheckPassword(user.Password, req.Password) {
		log.Printf("failed login attempt for %s", req.Username)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"status": "BAD", "message": "Invalid credentials"})
		return
	}

	token, err := s.tokens.GenerateToken(user.Username, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	log.Printf("user %s logged in", user.Username)
	writeOK(w, map[string]any{"token": token, "user_id": user.ID})
}

// RegisterHandler creates a new account.
func (s *server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", model.ErrValidation))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, fmt.Errorf("username must be at least 3 and password at least 6 characters: %w", model.ErrValidation))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := s.store.AddUser(r.Context(), req.Username, hash); err != nil {
		if errors.Is(err, model.ErrAlreadyMember) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"status": "BAD", "message": "Username already exists"})
			return
		}
		writeError(w, err)
		return
	}

	log.Printf("user %s registered", req.Username)
	writeOK(w, map[string]any{"message": "Registration successful"})
}
