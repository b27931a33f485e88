package chat

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"chatsync/internal/app/store"
	"chatsync/internal/pkg/logx"
)

// FeedState is a copy of the feed at one point in time.
type FeedState struct {
	Messages []Message
	Loading  bool
	Error    string
}

// Feed mirrors the message history: an initial window of at most limit
// messages taken in ascending created_at order, then one appended message per
// insert event. Events are appended in arrival order, without sorting or
// deduplication.
type Feed struct {
	store  source
	limit  int
	notify func()

	mu       sync.RWMutex
	messages []Message
	loading  bool
	loadErr  string

	logger zerolog.Logger
}

func NewFeed(st source, limit int, notify func()) *Feed {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if notify == nil {
		notify = func() {}
	}

	return &Feed{
		store:   st,
		limit:   limit,
		notify:  notify,
		loading: true,
		logger:  logx.Component("feed"),
	}
}

// State returns a copy of the feed.
func (f *Feed) State() FeedState {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return FeedState{
		Messages: append([]Message(nil), f.messages...),
		Loading:  f.loading,
		Error:    f.loadErr,
	}
}

// Run loads the initial window, then appends inserted messages until ctx
// ends, when the feed is cleared back to its loading state.
func (f *Feed) Run(ctx context.Context) {
	defer f.reset()

	if !f.load(ctx) {
		return
	}

	sub, err := f.store.Subscribe(ctx, TableMessages, store.EventInsert)
	if err != nil {
		if ctx.Err() == nil {
			f.logger.Error().Err(err).Msg("Failed to subscribe to new messages.")
			<-ctx.Done()
		}
		return
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				if ctx.Err() == nil {
					f.logger.Warn().Msg("Message subscription closed. Updates paused until reconnect.")
					<-ctx.Done()
				}
				return
			}
			f.apply(ev)
		}
	}
}

// load reports false only when ctx ended during the fetch. A failed fetch
// still returns true so new messages keep arriving.
func (f *Feed) load(ctx context.Context) bool {
	rows, err := f.store.Select(ctx, store.Query{
		Table: TableMessages,
		Order: []store.Order{store.Asc("created_at")},
		Limit: f.limit,
	})
	if ctx.Err() != nil {
		return false
	}

	var messages []Message
	if err == nil {
		messages, err = decodeRows[Message](rows)
	}

	f.mu.Lock()
	if err != nil {
		f.logger.Error().Err(err).Msg("Failed to load messages.")
		f.loadErr = LoadMessagesErrorMessage
	} else {
		f.messages = messages
		f.logger.Info().Int("count", len(messages)).Msg("Message history loaded.")
	}
	f.loading = false
	f.mu.Unlock()

	f.notify()
	return true
}

func (f *Feed) apply(ev store.ChangeEvent) {
	if ev.Type != store.EventInsert {
		return
	}

	var msg Message
	if err := json.Unmarshal(ev.Record, &msg); err != nil {
		f.logger.Error().Err(err).Msg("Failed to decode inserted message.")
		return
	}

	f.mu.Lock()
	f.messages = append(f.messages, msg)
	f.mu.Unlock()

	f.notify()
}

func (f *Feed) reset() {
	f.mu.Lock()
	f.messages = nil
	f.loading = true
	f.loadErr = ""
	f.mu.Unlock()

	f.notify()
}
