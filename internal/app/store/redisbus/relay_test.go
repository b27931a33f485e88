package redisbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/app/store"
	"chatsync/internal/app/store/memstore"
)

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{channel: channel, payload: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

func (p *fakePublisher) snapshot() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.msgs...)
}

func TestRelayForwardsEventsPerTable(t *testing.T) {
	src := memstore.New()
	pub := &fakePublisher{}
	relay := NewRelay(src, pub, "messages", "online_users")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- relay.Run(ctx) }()

	require.Eventually(t, func() bool {
		return src.Subscribers("messages") == 1 && src.Subscribers("online_users") == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, src.Insert(ctx, "messages", map[string]any{"text": "hi", "user_id": "u1"}))
	src.Upsert("online_users", map[string]any{"id": "u1", "display_name": "Al"})

	require.Eventually(t, func() bool { return len(pub.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	byChannel := map[string]store.ChangeEvent{}
	for _, m := range pub.snapshot() {
		ev, err := store.DecodeEvent(m.payload)
		require.NoError(t, err)
		byChannel[m.channel] = ev
	}

	assert.Equal(t, store.EventInsert, byChannel["realtime:messages"].Type)
	assert.Equal(t, "online_users", byChannel["realtime:online_users"].Table)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
	assert.Equal(t, 0, src.Subscribers("messages"))
}

func TestRelayFailsWhenSourceEnds(t *testing.T) {
	src := memstore.New()
	relay := NewRelay(src, &fakePublisher{}, "messages")

	errCh := make(chan error, 1)
	go func() { errCh <- relay.Run(context.Background()) }()

	require.Eventually(t, func() bool { return src.Subscribers("messages") == 1 }, time.Second, 5*time.Millisecond)
	src.Close()

	select {
	case err := <-errCh:
		assert.ErrorContains(t, err, "messages")
	case <-time.After(time.Second):
		t.Fatal("relay did not report the closed source")
	}
}

func TestRelayReportsSubscribeFailure(t *testing.T) {
	src := memstore.New()
	src.Fail(memstore.OpSubscribe, "messages", assert.AnError)

	err := NewRelay(src, &fakePublisher{}, "messages").Run(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSubscriberDecode(t *testing.T) {
	s := &Subscriber{}

	ev, ok := s.decode("realtime:messages", `{"table":"messages","type":"INSERT","record":{"id":"m1"}}`, []store.EventType{store.EventInsert})
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"m1"}`, string(ev.Record))

	_, ok = s.decode("realtime:messages", `{"table":"messages","type":"DELETE"}`, []store.EventType{store.EventInsert})
	assert.False(t, ok)

	_, ok = s.decode("realtime:messages", `not json`, nil)
	assert.False(t, ok)
}
