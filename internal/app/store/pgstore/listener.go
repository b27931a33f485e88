package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"chatsync/internal/app/store"
	"chatsync/internal/pkg/logx"
)

const (
	eventBuffer  = 64
	closeTimeout = 5 * time.Second
)

// Listener opens subscriptions as LISTEN on a dedicated pooled connection
// per subscription. Payloads are the JSON change events the row triggers
// publish; oversized rows arrive as an id and are loaded from the pool.
type Listener struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

var _ store.Subscriber = (*Listener)(nil)

func NewListener(pool *pgxpool.Pool) *Listener {
	return &Listener{pool: pool, logger: logx.Component("pg_listener")}
}

func (l *Listener) Subscribe(ctx context.Context, table string, events ...store.EventType) (*store.Subscription, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgstore: acquire listen connection: %w", err)
	}

	channel := store.ChannelName(table)
	if _, err := conn.Exec(ctx, "LISTEN "+ident(channel)); err != nil {
		conn.Release()
		return nil, describe("listen on "+channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan store.ChangeEvent, eventBuffer)
	done := make(chan struct{})

	go l.pump(subCtx, conn, channel, events, out, done)

	return store.NewSubscription(out, func() {
		cancel()
		<-done
	}), nil
}

// pump forwards notifications until ctx ends or the connection fails. A
// connection interrupted mid-wait cannot be reused, so it is closed before
// going back to the pool.
func (l *Listener) pump(ctx context.Context, conn *pgxpool.Conn, channel string, events []store.EventType, out chan<- store.ChangeEvent, done chan<- struct{}) {
	defer close(done)
	defer close(out)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = conn.Conn().Close(closeCtx)
		conn.Release()
	}()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				l.logger.Error().Err(err).Str("channel", channel).Msg("Listen connection lost")
			}
			return
		}

		ev, err := resolveNotification(ctx, []byte(n.Payload), l.loadRow)
		if err != nil {
			l.logger.Warn().Err(err).Str("channel", channel).Msg("Dropping unusable change event")
			continue
		}
		if !store.Wants(events, ev.Type) {
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}
