package main

import (
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/SalemAitAmi/flask-chat-app/pkg/auth"
	"github.com/SalemAitAmi/flask-chat-app/pkg/broadcast"
	"github.com/SalemAitAmi/flask-chat-app/pkg/bus"
	"github.com/SalemAitAmi/flask-chat-app/pkg/config"
	"github.com/SalemAitAmi/flask-chat-app/pkg/snowflake"
	"github.com/SalemAitAmi/flask-chat-app/pkg/store"
)

type server struct {
	store       store.Store
	broadcaster *broadcast.Broadcaster
	tokens      *auth.Manager
	validate    *validator.Validate
}

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
		log.Fatalf("failed to initialize snowflake node: %v", err)
	}
	st := store.NewScylla(session, ids)

	publisher := bus.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	s := &server{
		store:       st,
		broadcaster: broadcast.New(st, publisher, ids),
		tokens:      auth.NewManager(cfg.JWTSecret),
		validate:    validator.New(),
	}

	mux := http.NewServeMux()

	// Public endpoints
	mux.HandleFunc("POST /login", s.LoginHandler)
	mux.HandleFunc("POST /register", s.RegisterHandler)

	// Protected endpoints
	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/chats", s.ChatsHandler)
	protected.HandleFunc("GET /api/chat/{chatID}", s.ChatHandler)
	protected.HandleFunc("POST /api/send_message", s.SendMessageHandler)
	protected.HandleFunc("POST /api/create_chat", s.CreateChatHandler)
	protected.HandleFunc("POST /api/add_user_to_chat", s.AddUserHandler)
	protected.HandleFunc("POST /api/update_chat_name", s.RenameChatHandler)
	protected.HandleFunc("POST /api/update_timezone", s.TimezoneHandler)
	protected.HandleFunc("GET /api/users", s.UsersHandler)
	protected.Handle("GET /api/presence", PresenceHandler(rdb))
	mux.Handle("/api/", s.AuthMiddleware(protected))

	log.Printf("API Service Starting on %s...", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, CORSMiddleware(mux)); err != nil {
		log.Fatal(err)
	}
}
