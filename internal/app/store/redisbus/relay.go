package redisbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"chatsync/internal/app/store"
	"chatsync/internal/pkg/logx"
)

// Publisher is the part of a Redis client the relay needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Relay copies change events for a fixed set of tables from source to Redis.
type Relay struct {
	source store.Subscriber
	pub    Publisher
	tables []string
	logger zerolog.Logger
}

func NewRelay(source store.Subscriber, pub Publisher, tables ...string) *Relay {
	return &Relay{
		source: source,
		pub:    pub,
		tables: tables,
		logger: logx.Component("relay"),
	}
}

// Run relays until ctx ends. It returns an error as soon as any source
// subscription fails or ends on its own; the caller decides whether to
// restart.
func (r *Relay) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	for _, table := range r.tables {
		sub, err := r.source.Subscribe(ctx, table)
		if err != nil {
			return fmt.Errorf("redisbus: relay subscribe to %s: %w", table, err)
		}

		g.Go(func() error {
			defer sub.Unsubscribe()
			return r.forward(ctx, table, sub)
		})
	}

	r.logger.Info().Strs("tables", r.tables).Msg("Relay started")
	return g.Wait()
}

func (r *Relay) forward(ctx context.Context, table string, sub *store.Subscription) error {
	channel := store.ChannelName(table)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("redisbus: source subscription for %s ended", table)
			}

			payload, err := json.Marshal(ev)
			if err != nil {
				r.logger.Error().Err(err).Str("table", table).Msg("Failed to encode change event")
				continue
			}
			if err := r.pub.Publish(ctx, channel, payload).Err(); err != nil {
				r.logger.Error().Err(err).Str("channel", channel).Msg("Failed to publish change event")
				continue
			}
			r.logger.Debug().Str("channel", channel).Str("type", string(ev.Type)).Msg("Relayed change event")
		}
	}
}
