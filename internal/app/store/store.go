/*
Package store defines the contract between the chat client and the remote
row store: query, insert, stored procedure calls and change-event
subscriptions on tables.

Rows cross the boundary as JSON objects so every backend (Postgres, the
in-process store, a Redis relay) hands the synchronizers the same bytes a
change event would carry.
*/
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("store: closed")

// Filter restricts a query to rows whose Column equals Value.
type Filter struct {
	Column string
	Value  any
}

// Order sorts query results by Column.
type Order struct {
	Column    string
	Ascending bool
}

// Query describes a read against a table or view.
type Query struct {
	Table   string
	Columns []string // empty selects every column
	Filters []Filter
	Order   []Order
	Limit   int // zero means no limit
}

// Eq returns a single-column equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// Asc orders by column, smallest first. Nulls sort last.
func Asc(column string) Order {
	return Order{Column: column, Ascending: true}
}

// Desc orders by column, largest first.
func Desc(column string) Order {
	return Order{Column: column}
}

// Reader runs queries.
type Reader interface {
	Select(ctx context.Context, q Query) ([]json.RawMessage, error)
}

// Writer inserts rows. row is marshalled to a JSON object; columns absent
// from it take the table defaults.
type Writer interface {
	Insert(ctx context.Context, table string, row any) error
}

// Caller invokes a stored procedure on behalf of the current account.
type Caller interface {
	RPC(ctx context.Context, procedure string) error
}

// Subscriber opens change-event subscriptions. An empty events list means
// every event type.
type Subscriber interface {
	Subscribe(ctx context.Context, table string, events ...EventType) (*Subscription, error)
}

// Store is the full remote store.
type Store interface {
	Reader
	Writer
	Caller
	Subscriber
}

// EventType names a row change.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// AllEvents lists every event type.
var AllEvents = []EventType{EventInsert, EventUpdate, EventDelete}

// ChangeEvent is one row change on a watched table. Record is the row after
// the change (absent for deletes), OldRecord the row before it (absent for
// inserts).
type ChangeEvent struct {
	Table           string          `json:"table"`
	Type            EventType       `json:"type"`
	Record          json.RawMessage `json:"record,omitempty"`
	OldRecord       json.RawMessage `json:"old_record,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// Wants reports whether a subscription for events should receive t.
func Wants(events []EventType, t EventType) bool {
	if len(events) == 0 {
		return true
	}
	for _, e := range events {
		if e == t {
			return true
		}
	}
	return false
}

// ChannelName is the notification channel carrying events for table, shared
// by the Postgres triggers and the Redis relay.
func ChannelName(table string) string {
	return "realtime:" + table
}

// DecodeEvent parses a change-event payload.
func DecodeEvent(payload []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ChangeEvent{}, err
	}
	if ev.Table == "" || ev.Type == "" {
		return ChangeEvent{}, errors.New("store: change event without table or type")
	}
	return ev, nil
}
