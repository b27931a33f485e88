package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatsync/internal/app/store"
	"chatsync/internal/app/user"
	"chatsync/internal/pkg/logx"
)

// ErrSessionClosed is returned by requests made after the session stopped.
var ErrSessionClosed = errors.New("chat: session closed")

// Config tunes a Session. Zero values take the package defaults.
type Config struct {
	ProbeInterval     time.Duration
	HeartbeatInterval time.Duration
	HistoryLimit      int
}

// Snapshot is a copy of everything the presentation layer shows.
type Snapshot struct {
	Status      Status         `json:"status"`
	Error       string         `json:"error,omitempty"`
	Loading     bool           `json:"loading"`
	LoadError   string         `json:"loadError,omitempty"`
	Messages    []Message      `json:"messages"`
	OnlineUsers []OnlineUser   `json:"onlineUsers"`
	Draft       string         `json:"draft"`
	User        *user.Identity `json:"user"`
}

// Session wires the chat activities to one remote store and one account.
//
// The monitor runs for the life of the session. Each time the status becomes
// connected the session starts an epoch running the roster, the feed and,
// with a signed-in account, the presence heartbeat; when the status leaves
// connected the epoch is cancelled and its state discarded.
type Session struct {
	users    user.Provider
	monitor  *Monitor
	presence *Presence
	roster   *Roster
	feed     *Feed
	composer *Composer

	// reloadReq asks the run loop to restart from connecting; the loop closes
	// the channel it receives once done.
	reloadReq chan chan struct{}

	stopChan  chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   chan struct{}

	watchMu  sync.Mutex
	watchers map[chan struct{}]struct{}

	logger zerolog.Logger
}

// NewSession builds a session. Call Start to begin probing.
func NewSession(st store.Store, users user.Provider, cfg Config) *Session {
	s := &Session{
		users:     users,
		reloadReq: make(chan chan struct{}),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
		started:   make(chan struct{}),
		watchers:  make(map[chan struct{}]struct{}),
		logger:    logx.Component("session"),
	}

	s.monitor = NewMonitor(st, cfg.ProbeInterval, s.signal)
	s.presence = NewPresence(st, users, cfg.HeartbeatInterval)
	s.roster = NewRoster(st, s.signal)
	s.feed = NewFeed(st, cfg.HistoryLimit, s.signal)
	s.composer = NewComposer(st, users, s.currentStatus, s.signal)

	return s
}

// Composer returns the session's composer.
func (s *Session) Composer() *Composer {
	return s.composer
}

// Start launches the session loop. It stops when ctx ends or Stop is called.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		close(s.started)
		go s.run(ctx)
	})
}

// Stop tears everything down and waits for it to finish.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})

	select {
	case <-s.started:
		<-s.done
	default:
	}
}

// Reload discards all state and starts again from connecting, the way a page
// reload would. It is the only way out of the disconnected state.
func (s *Session) Reload(ctx context.Context) error {
	ack := make(chan struct{})

	select {
	case s.reloadReq <- ack:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Logout signs the account out. Heartbeats stop at the next beat and sends
// are refused; the feed and roster stay live.
func (s *Session) Logout() {
	s.users.Logout()
	s.signal()
}

// Snapshot returns a consistent-enough copy of the session state. Each
// component is read under its own lock.
func (s *Session) Snapshot() Snapshot {
	status, errMsg := s.monitor.Status()
	feed := s.feed.State()

	snap := Snapshot{
		Status:      status,
		Error:       errMsg,
		Loading:     feed.Loading,
		LoadError:   feed.Error,
		Messages:    feed.Messages,
		OnlineUsers: s.roster.Users(),
		Draft:       s.composer.Draft(),
		User:        s.users.CurrentUser(),
	}
	if snap.Messages == nil {
		snap.Messages = []Message{}
	}
	if snap.OnlineUsers == nil {
		snap.OnlineUsers = []OnlineUser{}
	}
	return snap
}

// Watch returns a channel that receives a value after state changes, and a
// function that stops the watch. Signals coalesce; read Snapshot on receipt.
func (s *Session) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.watchMu.Lock()
	s.watchers[ch] = struct{}{}
	s.watchMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.watchMu.Lock()
			delete(s.watchers, ch)
			s.watchMu.Unlock()
		})
	}
}

func (s *Session) signal() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Session) currentStatus() Status {
	status, _ := s.monitor.Status()
	return status
}

// epoch is one continuous connected period.
type epoch struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (e *epoch) stop() {
	e.cancel()
	e.wg.Wait()
}

func (s *Session) startEpoch(parent context.Context) *epoch {
	ctx, cancel := context.WithCancel(parent)
	e := &epoch{cancel: cancel}

	run := func(fn func(context.Context)) {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			fn(ctx)
		}()
	}

	run(s.roster.Run)
	run(s.feed.Run)
	if s.users.CurrentUser() != nil {
		run(s.presence.Run)
	} else {
		s.logger.Info().Msg("No current user. Presence heartbeat not started.")
	}

	s.logger.Info().Msg("Connected. Synchronization started.")
	return e
}

func (s *Session) startMonitor(parent context.Context) (context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		s.monitor.Run(ctx)
	}()

	return cancel, done
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	stopMonitor, monitorDone := s.startMonitor(ctx)
	var current *epoch

	endEpoch := func() {
		if current != nil {
			current.stop()
			current = nil
			s.logger.Info().Msg("Synchronization stopped.")
		}
	}

	shutdown := func() {
		stopMonitor()
		<-monitorDone
		endEpoch()
	}

	for {
		select {
		case status := <-s.monitor.Changes():
			if status == StatusConnected {
				if current == nil {
					current = s.startEpoch(ctx)
				}
			} else {
				endEpoch()
			}
			s.signal()

		case ack := <-s.reloadReq:
			s.logger.Info().Msg("Reloading session.")
			shutdown()
			s.monitor.reset()
			stopMonitor, monitorDone = s.startMonitor(ctx)
			close(ack)

		case <-s.stopChan:
			shutdown()
			s.logger.Info().Msg("Session stopped.")
			return

		case <-ctx.Done():
			shutdown()
			s.logger.Info().Msg("Session context ended.")
			return
		}
	}
}
