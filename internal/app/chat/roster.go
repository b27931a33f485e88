package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"chatsync/internal/app/store"
	"chatsync/internal/pkg/logx"
)

// Roster mirrors the online_users view. Any change event on the view
// triggers a full refetch; the list is always replaced wholesale.
type Roster struct {
	store  source
	notify func()

	mu    sync.RWMutex
	users []OnlineUser

	logger zerolog.Logger
}

func NewRoster(st source, notify func()) *Roster {
	if notify == nil {
		notify = func() {}
	}
	return &Roster{store: st, notify: notify, logger: logx.Component("roster")}
}

// Users returns a copy of the current roster.
func (r *Roster) Users() []OnlineUser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]OnlineUser(nil), r.users...)
}

// Run fetches the roster, then keeps it current until ctx ends, when the
// subscription is dropped and the roster cleared.
func (r *Roster) Run(ctx context.Context) {
	defer r.replace(nil)

	r.refresh(ctx)

	sub, err := r.store.Subscribe(ctx, ViewOnlineUsers)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error().Err(err).Msg("Failed to subscribe to roster changes.")
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
					r.logger.Warn().Msg("Roster subscription closed. Updates paused until reconnect.")
					<-ctx.Done()
				}
				return
			}
			r.logger.Debug().Str("type", string(ev.Type)).Msg("Roster change received.")
			r.refresh(ctx)
		}
	}
}

func (r *Roster) refresh(ctx context.Context) {
	rows, err := r.store.Select(ctx, store.Query{
		Table: ViewOnlineUsers,
		Order: []store.Order{store.Asc("display_name")},
	})
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error().Err(err).Msg("Failed to fetch online users.")
		}
		return
	}

	users, err := decodeRows[OnlineUser](rows)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to decode online users.")
		return
	}

	r.replace(users)
}

func (r *Roster) replace(users []OnlineUser) {
	r.mu.Lock()
	r.users = users
	r.mu.Unlock()
	r.notify()
}
