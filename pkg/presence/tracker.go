// Package presence derives online/offline state from active connection
// counts. A user with several tabs or devices is one online user; only the
// first connection and the last disconnect are visible to anyone else.
package presence

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/SalemAitAmi/flask-chat-app/pkg/bus"
	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
	"github.com/SalemAitAmi/flask-chat-app/pkg/room"
	"github.com/SalemAitAmi/flask-chat-app/pkg/store"
)

// onlineSet is the Redis set mirroring currently-online usernames.
const onlineSet = "presence:online"

type entry struct {
	mu    sync.Mutex // guards count
	count int

	// emitMu serializes status publishes for this user. It is acquired while
	// mu is still held, so publishes happen in transition order, but the
	// store and bus I/O behind a publish never runs under the counting lock.
	emitMu sync.Mutex
}

// Tracker counts connections per user and publishes status-change events.
// Transitions for one user are decided under that user's count mutex and
// published under a chained emit mutex, so a disconnect racing a reconnect
// can never emit a stale offline event and a slow store cannot stall the
// counting path.
type Tracker struct {
	chats     store.Conversations
	registry  *room.Registry
	publisher bus.Publisher
	redis     *redis.Client

	mu      sync.Mutex
	entries map[string]*entry
}

// NewTracker builds a tracker. rdb may be nil, in which case the Redis mirror
// is skipped (tests, single-binary mode).
func NewTracker(chats store.Conversations, registry *room.Registry, publisher bus.Publisher, rdb *redis.Client) *Tracker {
	return &Tracker{
		chats:     chats,
		registry:  registry,
		publisher: publisher,
		redis:     rdb,
		entries:   make(map[string]*entry),
	}
}

func (t *Tracker) entryFor(username string) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[username]
	if !ok {
		e = &entry{}
		t.entries[username] = e
	}
	return e
}

// Connect records a new connection for username. The online event fires only
// on the 0 -> 1 transition.
func (t *Tracker) Connect(ctx context.Context, username string) {
	e := t.entryFor(username)
	e.mu.Lock()
	e.count++
	if e.count != 1 {
		e.mu.Unlock()
		return
	}
	e.emitMu.Lock()
	e.mu.Unlock()
	defer e.emitMu.Unlock()

	if t.redis != nil {
		if err := t.redis.SAdd(ctx, onlineSet, username).Err(); err != nil {
			log.Printf("presence: failed to mark %s online: %v", username, err)
		}
	}
	t.emit(ctx, username, model.StatusOnline)
}

// Disconnect records a closed connection. The offline event fires only when
// the post-decrement count is exactly zero; the decision happens under the
// count mutex and the publish under the chained emit mutex, so no
// concurrently-applied increment can be outrun by a stale offline event.
func (t *Tracker) Disconnect(ctx context.Context, username string) {
	e := t.entryFor(username)
	e.mu.Lock()
	if e.count == 0 {
		e.mu.Unlock()
		return
	}
	e.count--
	if e.count != 0 {
		e.mu.Unlock()
		return
	}
	e.emitMu.Lock()
	e.mu.Unlock()
	defer e.emitMu.Unlock()

	if t.redis != nil {
		if err := t.redis.SRem(ctx, onlineSet, username).Err(); err != nil {
			log.Printf("presence: failed to mark %s offline: %v", username, err)
		}
	}
	t.emit(ctx, username, model.StatusOffline)
}

// emit publishes a status-change event to every chat the user belongs to that
// currently has another connected member.
func (t *Tracker) emit(ctx context.Context, username, status string) {
	chatIDs, err := t.chats.UserChats(ctx, username)
	if err != nil {
		log.Printf("presence: failed to list chats for %s: %v", username, err)
		return
	}

	for _, chatID := range chatIDs {
		if !t.registry.HasOtherMember(room.ChatKey(chatID), username) {
			continue
		}
		ev := model.Event{
			Type:     model.EventUserStatus,
			ChatID:   chatID,
			Username: username,
			Status:   status,
		}
		if err := t.publisher.Publish(ctx, ev); err != nil {
			log.Printf("presence: failed to publish %s for %s: %v", status, username, err)
		}
	}
}

// Online returns the usernames in the Redis mirror. Returns nil without a
// Redis client.
func (t *Tracker) Online(ctx context.Context) ([]string, error) {
	if t.redis == nil {
		return nil, nil
	}
	return t.redis.SMembers(ctx, onlineSet).Result()
}
