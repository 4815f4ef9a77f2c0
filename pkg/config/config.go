// Package config loads per-service configuration from the environment.
// A .env file in the working directory is honoured when present.
package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Gateway configures the websocket gateway service.
type Gateway struct {
	Addr         string   `envconfig:"GATEWAY_ADDR" default:":8080"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:19092"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"chat-events"`
	RedisAddr    string   `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	ScyllaHosts  []string `envconfig:"SCYLLA_HOSTS" default:"localhost:9042"`
	Keyspace     string   `envconfig:"SCYLLA_KEYSPACE" default:"chat"`
	JWTSecret    string   `envconfig:"JWT_SECRET" default:"dev_secret_change_me"`
	NodeID       int64    `envconfig:"SNOWFLAKE_NODE" default:"2"`
}

// API configures the request/response service.
type API struct {
	Addr         string   `envconfig:"API_ADDR" default:":8081"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:19092"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"chat-events"`
	RedisAddr    string   `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	ScyllaHosts  []string `envconfig:"SCYLLA_HOSTS" default:"localhost:9042"`
	Keyspace     string   `envconfig:"SCYLLA_KEYSPACE" default:"chat"`
	JWTSecret    string   `envconfig:"JWT_SECRET" default:"dev_secret_change_me"`
	NodeID       int64    `envconfig:"SNOWFLAKE_NODE" default:"1"`
}

// Messaging configures the projection consumer.
type Messaging struct {
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:19092"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"chat-events"`
	GroupID      string   `envconfig:"KAFKA_GROUP_ID" default:"messaging-service-group"`
	ScyllaHosts  []string `envconfig:"SCYLLA_HOSTS" default:"localhost:9042"`
	Keyspace     string   `envconfig:"SCYLLA_KEYSPACE" default:"chat"`
}

// Load fills cfg from the environment. Missing .env files are not an error.
func Load(cfg interface{}) error {
	_ = godotenv.Load()
	return envconfig.Process("", cfg)
}
