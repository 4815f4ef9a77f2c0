package main

import (
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// PresenceHandler returns the currently-online usernames from the Redis
// mirror maintained by the gateways' presence trackers.
func PresenceHandler(rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := rdb.SMembers(r.Context(), "presence:online").Result()
		if err != nil {
			log.Printf("failed to fetch presence: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "ERROR", "message": "Failed to fetch presence"})
			return
		}
		writeOK(w, map[string]any{"users": users})
	}
}
