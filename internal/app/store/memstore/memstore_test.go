package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/app/store"
)

func decodeAll(t *testing.T, rows []json.RawMessage) []map[string]any {
	t.Helper()
	out := make([]map[string]any, 0, len(rows))
	for _, raw := range rows {
		var row map[string]any
		require.NoError(t, json.Unmarshal(raw, &row))
		out = append(out, row)
	}
	return out
}

func TestSelectFiltersOrdersAndLimits(t *testing.T) {
	s := New()
	s.Put("online_users",
		map[string]any{"id": "3", "display_name": "carol"},
		map[string]any{"id": "1", "display_name": nil},
		map[string]any{"id": "2", "display_name": "alice"},
	)

	rows, err := s.Select(context.Background(), store.Query{
		Table: "online_users",
		Order: []store.Order{store.Asc("display_name")},
	})
	require.NoError(t, err)

	got := decodeAll(t, rows)
	require.Len(t, got, 3)
	assert.Equal(t, "2", got[0]["id"])
	assert.Equal(t, "3", got[1]["id"])
	assert.Equal(t, "1", got[2]["id"], "nulls sort last")

	rows, err = s.Select(context.Background(), store.Query{
		Table:   "online_users",
		Columns: []string{"display_name"},
		Filters: []store.Filter{store.Eq("id", "3")},
		Limit:   1,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"display_name": "carol"}`, string(rows[0]))
}

func TestSelectOrdersTimestampsByInstant(t *testing.T) {
	s := New()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s.Put("messages",
		map[string]any{"id": "b", "created_at": base.Add(100 * time.Millisecond).Format(time.RFC3339Nano)},
		map[string]any{"id": "a", "created_at": base.Format(time.RFC3339Nano)},
	)

	rows, err := s.Select(context.Background(), store.Query{Table: "messages", Order: []store.Order{store.Asc("created_at")}})
	require.NoError(t, err)

	got := decodeAll(t, rows)
	assert.Equal(t, "a", got[0]["id"])
	assert.Equal(t, "b", got[1]["id"])
}

func TestInsertFillsDefaultsAndBroadcasts(t *testing.T) {
	s := New()
	ctx := context.Background()

	inserts, err := s.Subscribe(ctx, "messages", store.EventInsert)
	require.NoError(t, err)
	defer inserts.Unsubscribe()

	updates, err := s.Subscribe(ctx, "messages", store.EventUpdate)
	require.NoError(t, err)
	defer updates.Unsubscribe()

	require.NoError(t, s.Insert(ctx, "messages", map[string]any{"text": "hello"}))
	assert.Equal(t, 1, s.Inserts("messages"))

	select {
	case ev := <-inserts.Events():
		assert.Equal(t, store.EventInsert, ev.Type)
		var row map[string]any
		require.NoError(t, json.Unmarshal(ev.Record, &row))
		assert.Equal(t, "hello", row["text"])
		assert.NotEmpty(t, row["id"])
		assert.NotEmpty(t, row["created_at"])
	case <-time.After(time.Second):
		t.Fatal("insert event not delivered")
	}

	select {
	case ev := <-updates.Events():
		t.Fatalf("unexpected %s event on update-only subscription", ev.Type)
	default:
	}
}

func TestUpsertAndRemoveEmitEvents(t *testing.T) {
	s := New()
	sub, err := s.Subscribe(context.Background(), "online_users")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	s.Upsert("online_users", map[string]any{"id": "u1"})
	s.Upsert("online_users", map[string]any{"id": "u1", "display_name": "Al"})
	assert.True(t, s.Remove("online_users", "u1"))
	assert.False(t, s.Remove("online_users", "u1"))

	var types []store.EventType
	for range 3 {
		types = append(types, (<-sub.Events()).Type)
	}
	assert.Equal(t, []store.EventType{store.EventInsert, store.EventUpdate, store.EventDelete}, types)
	assert.Empty(t, s.Rows("online_users"))
}

func TestFailAndRPC(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	assert.Error(t, s.RPC(ctx, "update_user_presence"), "unregistered procedure")

	called := 0
	s.HandleRPC("update_user_presence", func(context.Context) error {
		called++
		return nil
	})
	require.NoError(t, s.RPC(ctx, "update_user_presence"))

	s.Fail(OpRPC, "update_user_presence", boom)
	assert.ErrorIs(t, s.RPC(ctx, "update_user_presence"), boom)
	assert.Equal(t, 1, called)
	assert.Equal(t, 3, s.Calls("update_user_presence"))

	s.Fail(OpInsert, "messages", boom)
	assert.ErrorIs(t, s.Insert(ctx, "messages", map[string]any{"text": "x"}), boom)
	assert.Zero(t, s.Inserts("messages"))

	s.Fail(OpInsert, "messages", nil)
	assert.NoError(t, s.Insert(ctx, "messages", map[string]any{"text": "x"}))
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := s.Subscribe(ctx, "messages")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Subscribers("messages"))

	cancel()

	require.Eventually(t, func() bool { return s.Subscribers("messages") == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestCloseRejectsFurtherCalls(t *testing.T) {
	s := New()
	sub, err := s.Subscribe(context.Background(), "messages")
	require.NoError(t, err)

	s.Close()

	_, open := <-sub.Events()
	assert.False(t, open)
	_, err = s.Select(context.Background(), store.Query{Table: "messages"})
	assert.ErrorIs(t, err, store.ErrClosed)
}
