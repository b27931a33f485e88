package redisbus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chatsync/internal/app/store"
	"chatsync/internal/pkg/logx"
)

const eventBuffer = 64

// Subscriber implements store.Subscriber on Redis channels fed by a Relay.
type Subscriber struct {
	client *redis.Client
	logger zerolog.Logger
}

var _ store.Subscriber = (*Subscriber)(nil)

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client, logger: logx.Component("redis_subscriber")}
}

func (s *Subscriber) Subscribe(ctx context.Context, table string, events ...store.EventType) (*store.Subscription, error) {
	channel := store.ChannelName(table)
	pubsub := s.client.Subscribe(ctx, channel)

	// Wait for the server to confirm before reporting the subscription open.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redisbus: subscribe to %s: %w", channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan store.ChangeEvent, eventBuffer)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					s.logger.Warn().Str("channel", channel).Msg("Redis subscription closed")
					return
				}
				ev, ok := s.decode(channel, msg.Payload, events)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return store.NewSubscription(out, func() {
		cancel()
		<-done
	}), nil
}

func (s *Subscriber) decode(channel, payload string, events []store.EventType) (store.ChangeEvent, bool) {
	ev, err := store.DecodeEvent([]byte(payload))
	if err != nil {
		s.logger.Warn().Err(err).Str("channel", channel).Msg("Dropping malformed change event")
		return store.ChangeEvent{}, false
	}
	return ev, store.Wants(events, ev.Type)
}
