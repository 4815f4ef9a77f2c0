package main

import (
	"context"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/SalemAitAmi/flask-chat-app/pkg/auth"
	"github.com/SalemAitAmi/flask-chat-app/pkg/bus"
	"github.com/SalemAitAmi/flask-chat-app/pkg/config"
	"github.com/SalemAitAmi/flask-chat-app/pkg/presence"
	"github.com/SalemAitAmi/flask-chat-app/pkg/room"
	"github.com/SalemAitAmi/flask-chat-app/pkg/snowflake"
	"github.com/SalemAitAmi/flask-chat-app/pkg/store"
)

func main() {
	var cfg config.Gateway
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
		log.Fatalf("failed to initialize snowflake node: %v", err)
	}
	chats := store.NewScylla(session, ids)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	publisher := bus.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	registry := room.NewRegistry()
	tracker := presence.NewTracker(chats, registry, publisher, rdb)
	hub := NewHub(registry, tracker, chats)

	ctx := context.Background()
	go hub.Run(ctx)

	// Every gateway instance consumes the full topic and fans out to its own
	// local connections.
	consumer := bus.NewKafkaFanoutConsumer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer consumer.Close()
	go func() {
		if err := consumer.Run(ctx, hub.HandleEvent); err != nil {
			log.Fatalf("fan-out consumer stopped: %v", err)
		}
	}()

	tokens := auth.NewManager(cfg.JWTSecret)
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, tokens, w, r)
	})

	log.Printf("Gateway Service Starting on %s...", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, nil); err != nil {
		log.Fatal(err)
	}
}
