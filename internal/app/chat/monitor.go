package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatsync/internal/app/store"
	"chatsync/internal/pkg/logx"
)

const (
	// DefaultProbeInterval is the time between connectivity probes.
	DefaultProbeInterval = 30 * time.Second

	statusChangeBuffer = 8
)

// Monitor probes the remote store and owns the connection status.
//
// Status starts at connecting. A successful probe moves it to connected, a
// failed one to disconnected. Disconnected is final for a run: the monitor
// stops probing until the session resets and restarts it.
type Monitor struct {
	reader   store.Reader
	interval time.Duration
	notify   func()

	// changes carries every status transition to the session loop.
	changes chan Status

	mu     sync.RWMutex
	status Status
	errMsg string

	logger zerolog.Logger
}

// NewMonitor creates a monitor in the connecting state.
func NewMonitor(reader store.Reader, interval time.Duration, notify func()) *Monitor {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if notify == nil {
		notify = func() {}
	}

	return &Monitor{
		reader:   reader,
		interval: interval,
		notify:   notify,
		changes:  make(chan Status, statusChangeBuffer),
		status:   StatusConnecting,
		logger:   logx.Component("monitor"),
	}
}

// Status returns the current status and its user-facing error, if any.
func (m *Monitor) Status() (Status, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status, m.errMsg
}

// Changes delivers status transitions in order.
func (m *Monitor) Changes() <-chan Status {
	return m.changes
}

// Run probes once immediately and then every interval until a probe fails
// or ctx ends.
func (m *Monitor) Run(ctx context.Context) {
	if !m.probe(ctx) {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.probe(ctx) {
				return
			}
		}
	}
}

// reset returns the monitor to connecting and discards undelivered
// transitions. Only valid while Run is not executing.
func (m *Monitor) reset() {
	m.mu.Lock()
	m.status = StatusConnecting
	m.errMsg = ""
	m.mu.Unlock()

	for {
		select {
		case <-m.changes:
		default:
			m.notify()
			return
		}
	}
}

// probe reports whether the monitor should keep probing.
func (m *Monitor) probe(ctx context.Context) bool {
	_, err := m.reader.Select(ctx, store.Query{
		Table:   TableProfiles,
		Columns: []string{"id"},
		Limit:   1,
	})
	if ctx.Err() != nil {
		return false
	}

	if err != nil {
		m.logger.Error().Err(err).Msg("Connectivity probe failed.")
		m.set(ctx, StatusDisconnected, ConnectionErrorMessage)
		return false
	}

	m.set(ctx, StatusConnected, "")
	return true
}

func (m *Monitor) set(ctx context.Context, status Status, errMsg string) {
	m.mu.Lock()
	previous := m.status
	m.status = status
	m.errMsg = errMsg
	m.mu.Unlock()

	if previous == status {
		return
	}

	m.logger.Info().
		Str("from", string(previous)).
		Str("to", string(status)).
		Msg("Connection status changed.")
	m.notify()

	select {
	case m.changes <- status:
	case <-ctx.Done():
	}
}
