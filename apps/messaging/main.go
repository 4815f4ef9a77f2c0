package main

import (
	"context"
	"log"

	"github.com/SalemAitAmi/flask-chat-app/pkg/bus"
	"github.com/SalemAitAmi/flask-chat-app/pkg/config"
	"github.com/SalemAitAmi/flask-chat-app/pkg/store"
)

func main() {
	var cfg config.Messaging
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	session, err := store.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatalf("failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	chats := store.NewScylla(session, nil)

	consumer := bus.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.GroupID)
	defer consumer.Close()

	projector := NewProjector(chats)
	log.Println("Starting projection consumer...")
	if err := projector.Run(context.Background(), consumer); err != nil {
		log.Fatalf("projection consumer stopped: %v", err)
	}
}
