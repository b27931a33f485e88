package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"chatsync/internal/app/store"
)

// notifyPayloadLimit is the size at which notify_row_change() switches to an
// id-only payload. Postgres caps NOTIFY payloads below 8000 bytes.
const notifyPayloadLimit = 7900

// rowLoader returns one row of table as JSON, or nil when it no longer exists.
type rowLoader func(ctx context.Context, table, id string) (json.RawMessage, error)

// resolveNotification decodes a trigger payload. Id-only payloads get their
// record loaded through load.
func resolveNotification(ctx context.Context, payload []byte, load rowLoader) (store.ChangeEvent, error) {
	ev, err := store.DecodeEvent(payload)
	if err != nil {
		return store.ChangeEvent{}, err
	}

	var ref struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &ref); err != nil || ref.ID == "" {
		return ev, nil
	}
	if ev.Type == store.EventDelete {
		return ev, nil
	}

	record, err := load(ctx, ev.Table, ref.ID)
	if err != nil {
		return store.ChangeEvent{}, fmt.Errorf("pgstore: load %s row %s: %w", ev.Table, ref.ID, err)
	}
	ev.Record = record
	return ev, nil
}

// loadRow reads one row by id as row_to_json.
func (l *Listener) loadRow(ctx context.Context, table, id string) (json.RawMessage, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, "SELECT row_to_json(t) FROM "+ident(table)+" AS t WHERE t.id = $1", id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, describe("load "+table+" row", err)
	}
	return raw, nil
}
