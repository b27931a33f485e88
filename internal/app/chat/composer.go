package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"chatsync/internal/app/store"
	"chatsync/internal/app/user"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
)

type sink interface {
	store.Reader
	store.Writer
}

// Composer holds the draft and sends it as a new message.
type Composer struct {
	store  sink
	users  user.Provider
	status func() Status
	notify func()

	// sendMu serializes Submit so a draft is never sent twice concurrently.
	sendMu sync.Mutex

	mu    sync.RWMutex
	draft string

	logger zerolog.Logger
}

// NewComposer creates a composer. status reports the current connection
// status; sends are refused unless it is connected.
func NewComposer(st sink, users user.Provider, status func() Status, notify func()) *Composer {
	if notify == nil {
		notify = func() {}
	}

	return &Composer{
		store:  st,
		users:  users,
		status: status,
		notify: notify,
		logger: logx.Component("composer"),
	}
}

// Draft returns the text being composed.
func (c *Composer) Draft() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.draft
}

// SetDraft replaces the text being composed.
func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
	c.notify()
}

// Submit sends the draft as typed and clears it once the insert succeeds.
// The message reaches the feed through the insert event, not locally.
//
// Nothing is sent, and the draft is kept, when the draft is blank, nobody is
// signed in, the client is not connected or the insert fails.
func (c *Composer) Submit(ctx context.Context) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	text := c.Draft()
	if strings.TrimSpace(text) == "" {
		return errs.NewError(errs.ErrEmptyMessage)
	}

	identity := c.users.CurrentUser()
	if identity == nil {
		return errs.NewError(errs.ErrNotSignedIn)
	}

	if c.status() != StatusConnected {
		return errs.NewError(errs.ErrNotConnected)
	}

	if len(text) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong, MaxContentBytes)
	}

	profile := c.lookupProfile(ctx, identity.ID)

	msg := outgoingMessage{
		Text:            text,
		UserID:          identity.ID,
		UserDisplayName: resolveDisplayName(profile, identity.Email),
		UserAvatarURL:   resolveAvatarURL(profile),
	}

	if err := c.store.Insert(ctx, TableMessages, msg); err != nil {
		c.logger.Error().Err(err).Str("user_id", identity.ID).Msg("Failed to send message.")
		return errs.NewError(errs.ErrMessageNotSent)
	}

	c.logger.Debug().Str("user_id", identity.ID).Int("length", len(text)).Msg("Message sent.")
	c.SetDraft("")
	return nil
}

// lookupProfile returns nil when the profile is missing or unreadable.
func (c *Composer) lookupProfile(ctx context.Context, userID string) *Profile {
	rows, err := c.store.Select(ctx, store.Query{
		Table:   TableProfiles,
		Columns: []string{"display_name", "avatar_url"},
		Filters: []store.Filter{store.Eq("id", userID)},
		Limit:   1,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch profile.")
		return nil
	}

	profiles, err := decodeRows[Profile](rows)
	if err != nil {
		c.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to decode profile.")
		return nil
	}
	if len(profiles) == 0 {
		c.logger.Warn().Str("user_id", userID).Msg("No profile found for current user.")
		return nil
	}
	return &profiles[0]
}
