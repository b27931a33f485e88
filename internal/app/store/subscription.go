package store

import "sync"

// Subscription is an open change-event stream. Events is closed when the
// subscription ends, either through Unsubscribe or because the transport
// failed.
type Subscription struct {
	events <-chan ChangeEvent
	stop   func()
	once   sync.Once
}

// NewSubscription wraps an event channel owned by a transport. stop must
// release the transport and return only after events has been closed.
func NewSubscription(events <-chan ChangeEvent, stop func()) *Subscription {
	return &Subscription{events: events, stop: stop}
}

// Events returns the stream. Drain it from a single goroutine.
func (s *Subscription) Events() <-chan ChangeEvent {
	return s.events
}

// Unsubscribe ends the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.stop)
}
