package room

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	name      string
	delivered [][]byte
}

func (f *fakeConn) Username() string { return f.name }

func (f *fakeConn) Deliver(payload []byte) bool {
	f.delivered = append(f.delivered, payload)
	return true
}

func TestJoinIsIdempotent(t *testing.T) {
	r := NewRegistry()
	conn := &fakeConn{name: "alice"}

	r.Join("chat_1", conn)
	r.Join("chat_1", conn)

	require.Len(t, r.Members("chat_1"), 1)
}

func TestConnectionCanJoinManyRooms(t *testing.T) {
	r := NewRegistry()
	conn := &fakeConn{name: "alice"}

	r.Join("chat_1", conn)
	r.Join("chat_2", conn)
	r.Join(DirectKey("alice", "boby"), conn)

	assert.Len(t, r.Members("chat_1"), 1)
	assert.Len(t, r.Members("chat_2"), 1)
	assert.Len(t, r.Members("dm:alice:boby"), 1)
}

func TestLeaveAllDetachesEverywhere(t *testing.T) {
	r := NewRegistry()
	conn := &fakeConn{name: "alice"}
	other := &fakeConn{name: "boby"}

	r.Join("chat_1", conn)
	r.Join("chat_2", conn)
	r.Join("chat_1", other)

	r.LeaveAll(conn)

	assert.Empty(t, r.Members("chat_2"))
	require.Len(t, r.Members("chat_1"), 1)
	assert.Equal(t, "boby", r.Members("chat_1")[0].Username())
}

func TestLeaveAllForUnknownConnectionIsNoOp(t *testing.T) {
	r := NewRegistry()

	assert.NotPanics(t, func() {
		r.LeaveAll(&fakeConn{name: "ghost"})
	})
}

func TestLeaveUnjoinedRoomIsNoOp(t *testing.T) {
	r := NewRegistry()
	conn := &fakeConn{name: "alice"}

	assert.NotPanics(t, func() {
		r.Leave("chat_99", conn)
	})
}

func TestEmptyRoomsArePruned(t *testing.T) {
	r := NewRegistry()
	conn := &fakeConn{name: "alice"}

	r.Join("chat_1", conn)
	r.LeaveAll(conn)

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.NotContains(t, r.rooms, "chat_1")
	assert.NotContains(t, r.conns, conn)
}

func TestJoinRacingLastLeaveStaysReachable(t *testing.T) {
	r := NewRegistry()
	joiner := &fakeConn{name: "alice"}
	leaver := &fakeConn{name: "boby"}

	// The leaver's departure empties the room and prunes it while the joiner
	// arrives. Whatever the interleaving, a completed Join must leave the
	// connection visible to Members, or broadcasts would silently skip it.
	for i := 0; i < 1000; i++ {
		r.Join("chat_1", leaver)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.LeaveAll(leaver)
		}()
		go func() {
			defer wg.Done()
			r.Join("chat_1", joiner)
		}()
		wg.Wait()

		members := r.Members("chat_1")
		require.Len(t, members, 1)
		require.Equal(t, "alice", members[0].Username())
		r.LeaveAll(joiner)
	}
}

func TestHasOtherMember(t *testing.T) {
	r := NewRegistry()
	alice := &fakeConn{name: "alice"}
	aliceTablet := &fakeConn{name: "alice"}
	boby := &fakeConn{name: "boby"}

	r.Join("chat_1", alice)
	r.Join("chat_1", aliceTablet)
	assert.False(t, r.HasOtherMember("chat_1", "alice"), "two connections of the same user are not another member")

	r.Join("chat_1", boby)
	assert.True(t, r.HasOtherMember("chat_1", "alice"))
	assert.False(t, r.HasOtherMember("chat_2", "alice"), "unknown room has no members")
}

func TestDirectKeySortsThePair(t *testing.T) {
	assert.Equal(t, DirectKey("alice", "boby"), DirectKey("boby", "alice"))
	assert.Equal(t, "dm:alice:boby", DirectKey("boby", "alice"))
}

func TestChatKey(t *testing.T) {
	assert.Equal(t, "chat_42", ChatKey(42))
}
