package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

type loginResponse struct {
	Token string `json:"token"`
}

// Smoke-checks the api: login as a seeded user, then fetch the chat list and
// the first chat's history.
func main() {
	apiAddr := "http://localhost:8081"

	reqBody, _ := json.Marshal(map[string]string{"username": "alice", "password": "alice1"})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var loginResp loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Token: %s...\n", loginResp.Token[:10])

	get := func(path string) string {
		req, _ := http.NewRequest("GET", apiAddr+path, nil)
		req.Header.Add("Authorization", "Bearer "+loginResp.Token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Fatalf("%s failed: %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body)
	}

	log.Printf("Chats: %s", get("/api/chats"))

	var chats struct {
		Chats []struct {
			ID int64 `json:"id"`
		} `json:"chats"`
	}
	if err := json.Unmarshal([]byte(get("/api/chats")), &chats); err != nil || len(chats.Chats) == 0 {
		log.Fatal("no chats to verify against")
	}
	log.Printf("History: %s", get(fmt.Sprintf("/api/chat/%d", chats.Chats[0].ID)))
}
