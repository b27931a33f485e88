/*
Package memstore is an in-process implementation of store.Store.

It backs the client in development mode and serves as the remote store in
tests. Tables are ordered row lists, inserts broadcast INSERT events to
subscribers, stored procedures are Go callbacks, and any operation can be made
to fail on demand.
*/
package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"chatsync/internal/app/store"
	"chatsync/internal/pkg/randx"
)

const subscriberBuffer = 64

// Op names an operation that can be made to fail with Fail.
type Op string

const (
	OpSelect    Op = "select"
	OpInsert    Op = "insert"
	OpRPC       Op = "rpc"
	OpSubscribe Op = "subscribe"
)

// Procedure is a stored procedure body.
type Procedure func(ctx context.Context) error

type failureKey struct {
	op     Op
	target string
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	tables   map[string][]map[string]any
	procs    map[string]Procedure
	failures map[failureKey]error
	subs     map[string]map[*subscriber]struct{}
	inserts  map[string]int
	calls    map[string]int
	closed   bool
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		tables:   make(map[string][]map[string]any),
		procs:    make(map[string]Procedure),
		failures: make(map[failureKey]error),
		subs:     make(map[string]map[*subscriber]struct{}),
		inserts:  make(map[string]int),
		calls:    make(map[string]int),
	}
}

// Fail makes op on target (a table or procedure name) return err until
// cleared with a nil err.
func (s *Store) Fail(op Op, target string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := failureKey{op: op, target: target}
	if err == nil {
		delete(s.failures, key)
		return
	}
	s.failures[key] = err
}

// HandleRPC registers the body of a stored procedure.
func (s *Store) HandleRPC(name string, fn Procedure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procs[name] = fn
}

// Put appends rows to table without emitting change events.
func (s *Store) Put(table string, rows ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		s.tables[table] = append(s.tables[table], cloneRow(row))
	}
}

// Upsert replaces the row with the same id, or appends it, and emits an
// UPDATE or INSERT event accordingly.
func (s *Store) Upsert(table string, row map[string]any) {
	s.mu.Lock()
	row = cloneRow(row)
	evType := store.EventInsert
	var old map[string]any
	for i, existing := range s.tables[table] {
		if sameID(existing, row) {
			old = existing
			s.tables[table][i] = row
			evType = store.EventUpdate
			break
		}
	}
	if old == nil {
		s.tables[table] = append(s.tables[table], row)
	}
	s.mu.Unlock()

	s.Emit(newEvent(table, evType, row, old))
}

// Remove deletes the row with the given id and emits a DELETE event.
func (s *Store) Remove(table, id string) bool {
	s.mu.Lock()
	rows := s.tables[table]
	var removed map[string]any
	for i, row := range rows {
		if fmt.Sprint(row["id"]) == id {
			removed = row
			s.tables[table] = append(rows[:i:i], rows[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if removed == nil {
		return false
	}
	s.Emit(newEvent(table, store.EventDelete, nil, removed))
	return true
}

// Rows returns a copy of the rows of table in storage order.
func (s *Store) Rows(table string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]any, 0, len(s.tables[table]))
	for _, row := range s.tables[table] {
		out = append(out, cloneRow(row))
	}
	return out
}

// Inserts returns how many Insert calls reached table successfully.
func (s *Store) Inserts(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts[table]
}

// Calls returns how many times procedure was invoked, failed calls included.
func (s *Store) Calls(procedure string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[procedure]
}

// Subscribers returns the number of open subscriptions on table.
func (s *Store) Subscribers(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[table])
}

// Select implements store.Reader.
func (s *Store) Select(ctx context.Context, q store.Query) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if err := s.checkLocked(OpSelect, q.Table); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	var matched []map[string]any
	for _, row := range s.tables[q.Table] {
		if matches(row, q.Filters) {
			matched = append(matched, cloneRow(row))
		}
	}
	s.mu.Unlock()

	if len(q.Order) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range q.Order {
				c := compareValues(matched[i][o.Column], matched[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Ascending {
					return c < 0
				}
				return c > 0
			}
			return false
		})
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]json.RawMessage, 0, len(matched))
	for _, row := range matched {
		raw, err := json.Marshal(project(row, q.Columns))
		if err != nil {
			return nil, fmt.Errorf("memstore: encode row: %w", err)
		}
		out = append(out, raw)
	}
	return out, nil
}

// Insert implements store.Writer. Missing id and created_at columns are
// filled in the way the Postgres column defaults would.
func (s *Store) Insert(ctx context.Context, table string, row any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record, err := toRow(row)
	if err != nil {
		return err
	}
	if _, ok := record["id"]; !ok {
		record["id"] = randx.RowID()
	}
	if _, ok := record["created_at"]; !ok {
		record["created_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	s.mu.Lock()
	if err := s.checkLocked(OpInsert, table); err != nil {
		s.mu.Unlock()
		return err
	}
	s.tables[table] = append(s.tables[table], record)
	s.inserts[table]++
	s.mu.Unlock()

	s.Emit(newEvent(table, store.EventInsert, record, nil))
	return nil
}

// RPC implements store.Caller.
func (s *Store) RPC(ctx context.Context, procedure string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.calls[procedure]++
	if err := s.checkLocked(OpRPC, procedure); err != nil {
		s.mu.Unlock()
		return err
	}
	fn, ok := s.procs[procedure]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("memstore: function %s() does not exist", procedure)
	}
	return fn(ctx)
}

// Subscribe implements store.Subscriber. The subscription also ends when ctx
// is cancelled.
func (s *Store) Subscribe(ctx context.Context, table string, events ...store.EventType) (*store.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(OpSubscribe, table); err != nil {
		return nil, err
	}

	sub := &subscriber{
		events: append([]store.EventType(nil), events...),
		ch:     make(chan store.ChangeEvent, subscriberBuffer),
		done:   make(chan struct{}),
	}
	if s.subs[table] == nil {
		s.subs[table] = make(map[*subscriber]struct{})
	}
	s.subs[table][sub] = struct{}{}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[table], sub)
			s.mu.Unlock()
			sub.close()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-sub.done:
		}
	}()

	return store.NewSubscription(sub.ch, stop), nil
}

// Emit delivers ev to every subscriber of ev.Table that wants its type.
// It blocks while a subscriber's buffer is full.
func (s *Store) Emit(ev store.ChangeEvent) {
	s.mu.Lock()
	targets := make([]*subscriber, 0, len(s.subs[ev.Table]))
	for sub := range s.subs[ev.Table] {
		if store.Wants(sub.events, ev.Type) {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(ev)
	}
}

// Close ends every subscription; later calls fail with store.ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	var all []*subscriber
	for table, subs := range s.subs {
		for sub := range subs {
			all = append(all, sub)
		}
		delete(s.subs, table)
	}
	s.mu.Unlock()

	for _, sub := range all {
		sub.close()
	}
}

func (s *Store) checkLocked(op Op, target string) error {
	if s.closed {
		return store.ErrClosed
	}
	if err, ok := s.failures[failureKey{op: op, target: target}]; ok {
		return err
	}
	return nil
}

type subscriber struct {
	events []store.EventType
	ch     chan store.ChangeEvent
	done   chan struct{}

	mu       sync.Mutex
	isClosed bool
	stopOnce sync.Once
}

func (sub *subscriber) deliver(ev store.ChangeEvent) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.isClosed {
		return
	}
	select {
	case sub.ch <- ev:
	case <-sub.done:
	}
}

func (sub *subscriber) close() {
	sub.stopOnce.Do(func() {
		close(sub.done)
		sub.mu.Lock()
		sub.isClosed = true
		close(sub.ch)
		sub.mu.Unlock()
	})
}

func newEvent(table string, t store.EventType, record, old map[string]any) store.ChangeEvent {
	ev := store.ChangeEvent{Table: table, Type: t, CommitTimestamp: time.Now().UTC()}
	if record != nil {
		ev.Record, _ = json.Marshal(record)
	}
	if old != nil {
		ev.OldRecord, _ = json.Marshal(old)
	}
	return ev
}

func toRow(row any) (map[string]any, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("memstore: encode row: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("memstore: row is not an object: %w", err)
	}
	if out == nil {
		return nil, errors.New("memstore: row is null")
	}
	return out, nil
}

func cloneRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func project(row map[string]any, columns []string) map[string]any {
	if len(columns) == 0 {
		return row
	}
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		out[c] = row[c]
	}
	return out
}

func sameID(a, b map[string]any) bool {
	idA, okA := a["id"]
	idB, okB := b["id"]
	return okA && okB && fmt.Sprint(idA) == fmt.Sprint(idB)
}

func matches(row map[string]any, filters []store.Filter) bool {
	for _, f := range filters {
		v, ok := row[f.Column]
		if !ok || v == nil || f.Value == nil || fmt.Sprint(v) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

// compareValues orders like Postgres ascending: nulls last, timestamps by
// instant, numbers numerically, everything else by its text form.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb)
		}
	}

	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}

	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}
