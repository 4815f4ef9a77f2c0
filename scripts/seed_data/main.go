package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/SalemAitAmi/flask-chat-app/pkg/auth"
	"github.com/SalemAitAmi/flask-chat-app/pkg/config"
	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
	"github.com/SalemAitAmi/flask-chat-app/pkg/snowflake"
	"github.com/SalemAitAmi/flask-chat-app/pkg/store"
)

// Seeds the default accounts and two sample conversations for local testing.
func main() {
	var cfg config.API
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	session, err := store.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatalf("failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	ids, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		log.Fatal(err)
	}
	st := store.NewScylla(session, ids)
	ctx := context.Background()

	users := map[string]string{
		"alice": "alice1",
		"boby":  "boby12",
		"ryan":  "ryan12",
		"samy":  "samy12",
		"ted":   "ted123",
		"admin": "admin1",
	}
	for username, password := range users {
		hash, err := auth.HashPassword(password)
		if err != nil {
			log.Fatal(err)
		}
		if _, err := st.AddUser(ctx, username, hash); err != nil && !errors.Is(err, model.ErrAlreadyMember) {
			log.Fatalf("failed to add user %s: %v", username, err)
		}
	}

	directID, err := st.CreateChat(ctx, []string{"alice", "boby"})
	if err != nil {
		log.Fatalf("failed to create direct chat: %v", err)
	}

	groupID, err := st.CreateChat(ctx, []string{"alice", "boby", "ryan", "samy"})
	if err != nil {
		log.Fatalf("failed to create group chat: %v", err)
	}
	if err := st.RenameChat(ctx, groupID, "Project Team"); err != nil {
		log.Fatal(err)
	}

	samples := []struct {
		chatID int64
		sender string
		text   string
	}{
		{directID, "alice", "Hi Boby, how are you today?"},
		{directID, "boby", "Doing well, thanks! You?"},
		{groupID, "alice", "Welcome to the project team channel."},
		{groupID, "ryan", "Glad to be here."},
	}
	for _, sample := range samples {
		sender, err := st.GetUser(ctx, sample.sender)
		if err != nil {
			log.Fatal(err)
		}
		msg := model.Message{
			ID:        ids.Generate(),
			ChatID:    sample.chatID,
			Sender:    sample.sender,
			SenderID:  sender.ID,
			Content:   sample.text,
			Timestamp: time.Now(),
		}
		if err := st.AppendMessage(ctx, msg); err != nil {
			log.Fatalf("failed to seed message: %v", err)
		}
	}

	log.Printf("Seeded %d users, direct chat %d, group chat %d", len(users), directID, groupID)
}
