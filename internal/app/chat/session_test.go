package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/app/store/memstore"
	"chatsync/internal/app/user"
)

var fastConfig = Config{
	ProbeInterval:     10 * time.Millisecond,
	HeartbeatInterval: 10 * time.Millisecond,
	HistoryLimit:      DefaultHistoryLimit,
}

func startSession(t *testing.T, st *memstore.Store, users user.Provider) *Session {
	t.Helper()

	s := NewSession(st, users, fastConfig)
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	return s
}

func requireStatus(t *testing.T, s *Session, want Status) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Snapshot().Status == want }, waitFor, tick)
}

func TestSessionSnapshotBeforeStart(t *testing.T) {
	s := NewSession(memstore.New(), alice(), Config{})

	snap := s.Snapshot()
	assert.Equal(t, StatusConnecting, snap.Status)
	assert.True(t, snap.Loading)
	assert.NotNil(t, snap.Messages)
	assert.NotNil(t, snap.OnlineUsers)
	require.NotNil(t, snap.User)
	assert.Equal(t, aliceID, snap.User.ID)
}

func TestSessionStartsSynchronizationWhenConnected(t *testing.T) {
	st := seededStore(t)
	st.Put(TableMessages, messageRow(1, time.Now()))
	st.Put(ViewOnlineUsers, onlineRow(aliceID, "Alice"))

	s := startSession(t, st, alice())

	requireStatus(t, s, StatusConnected)
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return !snap.Loading && len(snap.Messages) == 1 && len(snap.OnlineUsers) == 1
	}, waitFor, tick)
	requireSubscribers(t, st, TableMessages, 1)
	requireSubscribers(t, st, ViewOnlineUsers, 1)
	require.Eventually(t, func() bool { return st.Calls(ProcUpdatePresence) >= 2 }, waitFor, tick)
}

func TestSessionSendRoundTrip(t *testing.T) {
	st := seededStore(t)
	s := startSession(t, st, alice())
	requireStatus(t, s, StatusConnected)
	requireSubscribers(t, st, TableMessages, 1)

	s.Composer().SetDraft("hello")
	require.NoError(t, s.Composer().Submit(t.Context()))
	assert.Empty(t, s.Snapshot().Draft)

	require.Eventually(t, func() bool { return len(s.Snapshot().Messages) == 1 }, waitFor, tick)
	msg := s.Snapshot().Messages[0]
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, "Alice", msg.UserDisplayName)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestSessionTearsDownOnDisconnectAndLatches(t *testing.T) {
	st := seededStore(t)
	st.Put(TableMessages, messageRow(1, time.Now()))
	s := startSession(t, st, alice())
	require.Eventually(t, func() bool { return len(s.Snapshot().Messages) == 1 }, waitFor, tick)

	st.Fail(memstore.OpSelect, TableProfiles, errors.New("network unreachable"))
	requireStatus(t, s, StatusDisconnected)

	require.Eventually(t, func() bool {
		return st.Subscribers(TableMessages) == 0 && st.Subscribers(ViewOnlineUsers) == 0
	}, waitFor, tick)
	snap := s.Snapshot()
	assert.Equal(t, ConnectionErrorMessage, snap.Error)
	assert.Empty(t, snap.Messages)
	assert.Empty(t, snap.OnlineUsers)

	st.Fail(memstore.OpSelect, TableProfiles, nil)
	assert.Never(t, func() bool { return s.Snapshot().Status != StatusDisconnected }, 60*time.Millisecond, tick)

	calls := st.Calls(ProcUpdatePresence)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, st.Calls(ProcUpdatePresence), "heartbeat continued while disconnected")
}

func TestSessionReloadRecoversFromDisconnected(t *testing.T) {
	st := seededStore(t)
	st.Fail(memstore.OpSelect, TableProfiles, errors.New("dns failure"))
	s := startSession(t, st, alice())
	requireStatus(t, s, StatusDisconnected)

	st.Fail(memstore.OpSelect, TableProfiles, nil)
	require.NoError(t, s.Reload(t.Context()))

	requireStatus(t, s, StatusConnected)
	assert.Empty(t, s.Snapshot().Error)
	requireSubscribers(t, st, TableMessages, 1)
}

func TestSessionReloadWhileConnectedRestartsEpoch(t *testing.T) {
	st := seededStore(t)
	s := startSession(t, st, alice())
	requireStatus(t, s, StatusConnected)
	requireSubscribers(t, st, TableMessages, 1)

	require.NoError(t, s.Reload(t.Context()))

	requireStatus(t, s, StatusConnected)
	requireSubscribers(t, st, TableMessages, 1)
	requireSubscribers(t, st, ViewOnlineUsers, 1)
}

func TestSessionWithoutUserSkipsPresence(t *testing.T) {
	st := seededStore(t)
	account := alice()
	account.Logout()

	s := startSession(t, st, account)
	requireStatus(t, s, StatusConnected)
	requireSubscribers(t, st, TableMessages, 1)

	assert.Never(t, func() bool { return st.Calls(ProcUpdatePresence) > 0 }, 50*time.Millisecond, tick)
	assert.Nil(t, s.Snapshot().User)
}

func TestSessionLogoutRefusesSends(t *testing.T) {
	st := seededStore(t)
	s := startSession(t, st, alice())
	requireStatus(t, s, StatusConnected)

	s.Logout()
	s.Composer().SetDraft("hello")

	assert.Error(t, s.Composer().Submit(t.Context()))
	assert.Nil(t, s.Snapshot().User)
	assert.Equal(t, 0, st.Inserts(TableMessages))
}

func TestSessionWatchSignalsChanges(t *testing.T) {
	st := seededStore(t)
	s := NewSession(st, alice(), fastConfig)

	changes, unwatch := s.Watch()
	defer unwatch()

	s.Start(context.Background())
	t.Cleanup(s.Stop)

	select {
	case <-changes:
	case <-time.After(waitFor):
		t.Fatal("no change signal")
	}

	unwatch()
	unwatch()
}

func TestSessionStopReleasesEverything(t *testing.T) {
	st := seededStore(t)
	s := NewSession(st, alice(), fastConfig)
	s.Start(context.Background())
	requireStatus(t, s, StatusConnected)
	requireSubscribers(t, st, TableMessages, 1)

	s.Stop()
	s.Stop()

	assert.Equal(t, 0, st.Subscribers(TableMessages))
	assert.Equal(t, 0, st.Subscribers(ViewOnlineUsers))
	assert.ErrorIs(t, s.Reload(t.Context()), ErrSessionClosed)
}

func TestSessionStopWithoutStart(t *testing.T) {
	s := NewSession(memstore.New(), alice(), Config{})
	s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Reload(ctx), context.DeadlineExceeded)
}
