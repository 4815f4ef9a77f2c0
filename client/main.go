package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SalemAitAmi/flask-chat-app/pkg/chatview"
	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
)

type loginResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
}

type chatResponse struct {
	Status   string          `json:"status"`
	Chat     model.Chat      `json:"chat"`
	Messages []model.Message `json:"messages"`
}

func login(apiAddr, username, password string) (loginResponse, error) {
	reqBody, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return loginResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return loginResponse{}, fmt.Errorf("login failed: %s", string(body))
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return loginResponse{}, err
	}
	return out, nil
}

func fetchChat(apiAddr, token string, chatID int64) (chatResponse, error) {
	req, _ := http.NewRequest("GET", fmt.Sprintf("%s/api/chat/%d", apiAddr, chatID), nil)
	req.Header.Add("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return chatResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return chatResponse{}, fmt.Errorf("chat fetch failed: %s", string(body))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return chatResponse{}, err
	}
	return out, nil
}

// httpSender issues send-message requests against the api.
type httpSender struct {
	apiAddr string
	token   string
}

func (s *httpSender) SendMessage(chatID int64, text string) error {
	reqBody, _ := json.Marshal(map[string]any{"chat_id": chatID, "message": text})
	req, _ := http.NewRequest("POST", s.apiAddr+"/api/send_message", bytes.NewBuffer(reqBody))
	req.Header.Add("Authorization", "Bearer "+s.token)
	req.Header.Add("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("send rejected: %s", string(body))
	}
	return nil
}

// termRenderer renders the chatview timeline onto a terminal. Replacement is
// emulated by reprinting the confirmed bubble; the element-id map keeps the
// reconciliation contract (replace reports whether the element still exists).
type termRenderer struct {
	rendered map[string]bool
}

func newTermRenderer() *termRenderer {
	return &termRenderer{rendered: make(map[string]bool)}
}

func (t *termRenderer) InsertDateHeader(label string) {
	fmt.Printf("\r--- %s ---\n> ", label)
}

func (t *termRenderer) AppendMessage(id string, b chatview.Bubble) {
	t.rendered[id] = true
	if b.Pending {
		fmt.Printf("\r%s: %s (sending...)\n> ", b.Sender, b.Text)
		return
	}
	fmt.Printf("\r[%s] %s: %s\n> ", b.TimeLabel, b.Sender, b.Text)
}

func (t *termRenderer) ReplaceMessage(oldID, newID string, b chatview.Bubble) bool {
	if !t.rendered[oldID] {
		return false
	}
	delete(t.rendered, oldID)
	t.rendered[newID] = true
	fmt.Printf("\r[%s] %s: %s (delivered)\n> ", b.TimeLabel, b.Sender, b.Text)
	return true
}

func (t *termRenderer) RemoveMessage(id string) {
	delete(t.rendered, id)
	fmt.Print("\rmessage failed to send\n> ")
}

func (t *termRenderer) AppendNotice(text string) {
	fmt.Printf("\r* %s\n> ", text)
}

func (t *termRenderer) SetTitle(title string) {
	fmt.Printf("\r=== %s ===\n> ", title)
}

func (t *termRenderer) SetPresence(username, status string) {
	fmt.Printf("\r* %s is %s\n> ", username, status)
}

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "gateway service address")
	apiAddr := flag.String("api", "http://localhost:8081", "api service address")
	username := flag.String("user", "alice", "username")
	password := flag.String("pass", "", "password")
	chatID := flag.Int64("chat", 0, "chat id to open")
	flag.Parse()

	if *chatID == 0 {
		log.Fatal("a -chat id is required")
	}

	// 1. Login to get a token
	log.Printf("Logging in as %s...", *username)
	session, err := login(*apiAddr, *username, *password)
	if err != nil {
		log.Fatal("Login failed: ", err)
	}

	// 2. Fetch history for the chat view
	chatData, err := fetchChat(*apiAddr, session.Token, *chatID)
	if err != nil {
		log.Fatal("History fetch failed: ", err)
	}

	// 3. Connect the persistent channel
	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	header := http.Header{}
	header.Add("Authorization", "Bearer "+session.Token)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial: ", err)
	}
	defer c.Close()

	// 4. Build the view, render history, then join the room. All view calls
	// happen on this goroutine; network reads are funneled through channels.
	view := chatview.New(*chatID, *username, newTermRenderer(), &httpSender{apiAddr: *apiAddr, token: session.Token})
	view.Load(chatData.Chat, chatData.Messages)
	defer view.Close()

	join, _ := json.Marshal(map[string]any{"type": "join_chat", "chat_id": *chatID})
	if err := c.WriteMessage(websocket.TextMessage, join); err != nil {
		log.Fatal("join: ", err)
	}

	events := make(chan model.Event, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("read:", err)
				return
			}
			var ev model.Event
			if err := json.Unmarshal(message, &ev); err != nil {
				log.Printf("received raw: %s", message)
				continue
			}
			events <- ev
		}
	}()

	input := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			input <- scanner.Text()
		}
		close(input)
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	for {
		select {
		case ev := <-events:
			view.HandleEvent(ev)

		case text, ok := <-input:
			if !ok || text == "/quit" {
				shutdown(c, done)
				return
			}
			if text == "" {
				fmt.Print("> ")
				continue
			}
			if _, err := view.Send(text); err != nil {
				log.Println("send:", err)
			}

		case <-done:
			return

		case <-interrupt:
			shutdown(c, done)
			return
		}
	}
}

// shutdown closes the connection cleanly and waits briefly for the server's
// close frame.
func shutdown(c *websocket.Conn, done chan struct{}) {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Println("write close:", err)
		return
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}
