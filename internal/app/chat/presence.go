package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"chatsync/internal/app/store"
	"chatsync/internal/app/user"
	"chatsync/internal/pkg/logx"
)

// DefaultHeartbeatInterval is the time between presence heartbeats.
const DefaultHeartbeatInterval = 30 * time.Second

// Presence tells the remote store the current account is online by calling
// the presence procedure on a fixed cadence.
type Presence struct {
	caller   store.Caller
	users    user.Provider
	interval time.Duration
	logger   zerolog.Logger
}

func NewPresence(caller store.Caller, users user.Provider, interval time.Duration) *Presence {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}

	return &Presence{
		caller:   caller,
		users:    users,
		interval: interval,
		logger:   logx.Component("presence"),
	}
}

// Run beats immediately and then every interval until ctx ends or the
// account logs out. Failed beats are logged and not retried.
func (p *Presence) Run(ctx context.Context) {
	if !p.beat(ctx) {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.beat(ctx) {
				return
			}
		}
	}
}

func (p *Presence) beat(ctx context.Context) bool {
	identity := p.users.CurrentUser()
	if identity == nil {
		p.logger.Info().Msg("No current user. Presence heartbeat stopped.")
		return false
	}

	if err := p.caller.RPC(ctx, ProcUpdatePresence); err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error().Err(err).Str("user_id", identity.ID).Msg("Failed to update presence.")
		return true
	}

	p.logger.Debug().Str("user_id", identity.ID).Msg("Presence updated.")
	return true
}
