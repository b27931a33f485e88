package chat

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatsync/internal/app/store/memstore"
	"chatsync/internal/app/user"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond

	aliceID = "6f1c2a9e-0000-4000-8000-00000000a11c"
)

func strPtr(s string) *string { return &s }

func alice() *user.AccountSession {
	return user.NewAccountSession(user.Identity{ID: aliceID, Email: "alice@example.com"}, "token")
}

// seededStore returns a store with a profile for alice and a working
// presence procedure.
func seededStore(t *testing.T) *memstore.Store {
	t.Helper()

	st := memstore.New()
	st.Put(TableProfiles, map[string]any{"id": aliceID, "display_name": "Alice", "avatar_url": nil})
	st.HandleRPC(ProcUpdatePresence, func(ctx context.Context) error { return nil })
	t.Cleanup(st.Close)
	return st
}

func messageRow(i int, createdAt time.Time) map[string]any {
	return map[string]any{
		"id":                fmt.Sprintf("m%03d", i),
		"created_at":        createdAt.UTC().Format(time.RFC3339Nano),
		"text":              fmt.Sprintf("message %d", i),
		"user_id":           aliceID,
		"user_display_name": "Alice",
		"user_avatar_url":   nil,
	}
}

// runInBackground starts fn and returns a cancel that waits for it.
func runInBackground(t *testing.T, fn func(context.Context)) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(ctx)
	}()

	stop := func() {
		cancel()
		select {
		case <-done:
		case <-time.After(waitFor):
			t.Fatal("activity did not stop")
		}
	}
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return stop
}

type counter struct{ n atomic.Int64 }

func (c *counter) inc() { c.n.Add(1) }
func (c *counter) load() int64 { return c.n.Load() }

func requireSubscribers(t *testing.T, st *memstore.Store, table string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return st.Subscribers(table) == n }, waitFor, tick)
}
