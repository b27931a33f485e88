package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatsync/internal/app/store"
)

// claimSetting is the transaction setting stored procedures read the current
// account id from.
const claimSetting = "request.jwt.claim.sub"

// Option configures a Store.
type Option func(*Store)

// WithRealtime routes subscriptions to sub instead of the store's own
// LISTEN connections.
func WithRealtime(sub store.Subscriber) Option {
	return func(s *Store) {
		s.realtime = sub
	}
}

// Store is a store.Store on a pgx pool, acting for a single account.
type Store struct {
	pool     *pgxpool.Pool
	userID   string
	realtime store.Subscriber
}

var _ store.Store = (*Store)(nil)

// New returns a Store acting as userID. userID may be empty for anonymous
// access, in which case procedures see no current account.
func New(pool *pgxpool.Pool, userID string, opts ...Option) *Store {
	s := &Store{pool: pool, userID: userID}
	for _, opt := range opts {
		opt(s)
	}
	if s.realtime == nil {
		s.realtime = NewListener(pool)
	}
	return s
}

func (s *Store) Select(ctx context.Context, q store.Query) ([]json.RawMessage, error) {
	sql, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		return nil, describe(fmt.Sprintf("select from %s", q.Table), err)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("pgstore: decode rows from %s: %w", q.Table, err)
	}
	return rows, nil
}

func (s *Store) Insert(ctx context.Context, table string, row any) error {
	sql, args, err := buildInsert(table, row)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return describe(fmt.Sprintf("insert into %s", table), err)
	}
	return nil
}

// RPC calls procedure with no arguments inside a transaction that carries
// the account id.
func (s *Store) RPC(ctx context.Context, procedure string) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if s.userID != "" {
			if _, err := tx.Exec(ctx, "SELECT set_config($1, $2, true)", claimSetting, s.userID); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, fmt.Sprintf("SELECT %s()", ident(procedure)))
		return err
	})
	if err != nil {
		return describe(fmt.Sprintf("call %s", procedure), err)
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, table string, events ...store.EventType) (*store.Subscription, error) {
	return s.realtime.Subscribe(ctx, table, events...)
}
