package main

import (
	"log"

	"github.com/SalemAitAmi/flask-chat-app/pkg/config"
	"github.com/SalemAitAmi/flask-chat-app/pkg/store"
)

// Creates the chat keyspace and every table the services expect. Safe to run
// repeatedly.
func main() {
	var cfg config.API
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sysSession, err := store.NewSession(cfg.ScyllaHosts, "system")
	if err != nil {
		log.Fatalf("failed to connect to ScyllaDB system keyspace: %v", err)
	}
	if err := sysSession.Query(`CREATE KEYSPACE IF NOT EXISTS chat WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec(); err != nil {
		log.Fatalf("failed to create keyspace: %v", err)
	}
	sysSession.Close()

	session, err := store.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatalf("failed to connect to ScyllaDB chat keyspace: %v", err)
	}
	defer session.Close()

	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username text,
			id bigint,
			password text,
			timezone text,
			created_at timestamp,
			PRIMARY KEY (username)
		)`,
		`CREATE TABLE IF NOT EXISTS chats (
			id bigint,
			name text,
			is_group boolean,
			created_at timestamp,
			last_message_at timestamp,
			PRIMARY KEY (id)
		)`,
		`CREATE TABLE IF NOT EXISTS chat_participants (
			chat_id bigint,
			username text,
			user_id bigint,
			added_by text,
			added_at timestamp,
			PRIMARY KEY (chat_id, username)
		)`,
		`CREATE TABLE IF NOT EXISTS user_chats (
			username text,
			chat_id bigint,
			PRIMARY KEY (username, chat_id)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			chat_id bigint,
			id bigint,
			sender text,
			sender_id bigint,
			content text,
			ts timestamp,
			PRIMARY KEY (chat_id, id)
		) WITH CLUSTERING ORDER BY (id DESC)`,
	}

	for _, cql := range tables {
		if err := session.Query(cql).Exec(); err != nil {
			log.Fatalf("failed to create table: %v", err)
		}
	}

	log.Println("Schema created successfully")
}
