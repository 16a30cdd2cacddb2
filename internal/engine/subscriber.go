package engine

import (
	"context"
	"errors"
	"sync"
	"time"
)

// SubscriberState tracks the live-insert subscription lifecycle.
type SubscriberState int

const (
	StateIdle SubscriberState = iota
	StateSubscribing
	StateActive
	StateClosed
)

const defaultResolveTimeout = 3 * time.Second

// LiveInsertSubscriber owns one standing subscription and turns raw insert
// events into fully formed Messages. Each inbound event triggers its own
// name-resolution round trip; lookups run concurrently, but delivery to the
// callback is serialized and stops permanently once Close is called, even
// for events already in flight.
type LiveInsertSubscriber struct {
	live           LiveInsertBoundary
	profiles       ProfileBoundary
	resolveTimeout time.Duration
	logf           func(format string, args ...interface{})

	mu        sync.Mutex
	state     SubscriberState
	cancel    context.CancelFunc
	onMessage func(Message)
	onDown    func(error)
}

func NewLiveInsertSubscriber(live LiveInsertBoundary, profiles ProfileBoundary, logf func(string, ...interface{})) *LiveInsertSubscriber {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &LiveInsertSubscriber{
		live:           live,
		profiles:       profiles,
		resolveTimeout: defaultResolveTimeout,
		logf:           logf,
		state:          StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *LiveInsertSubscriber) State() SubscriberState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open transitions Idle -> Subscribing and establishes the room-scoped
// subscription. On channel readiness the subscriber becomes Active and
// onMessage starts receiving merged-ready messages. onDown is invoked at
// most once if the subscription drops mid-session; re-opening is the
// caller's job. Callbacks must not call back into Open or Close.
func (s *LiveInsertSubscriber) Open(ctx context.Context, roomID string, onMessage func(Message), onDown func(error)) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return errors.New("subscriber is not idle")
	}
	s.state = StateSubscribing
	subCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.onMessage = onMessage
	s.onDown = onDown
	s.mu.Unlock()

	events, err := s.live.Subscribe(subCtx, roomID)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		return &SubscriptionError{RoomID: roomID, Err: err}
	}

	s.mu.Lock()
	if s.state == StateClosed {
		// Closed while the dial was in flight; drop the subscription.
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.state = StateActive
	s.mu.Unlock()

	go s.pump(subCtx, roomID, events)
	return nil
}

// Close releases the subscription and guarantees no further callbacks. It is
// idempotent and safe to call from any state.
func (s *LiveInsertSubscriber) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *LiveInsertSubscriber) pump(ctx context.Context, roomID string, events <-chan RawInsert) {
	for ev := range events {
		// Resolution lookups must not block later inserts from being
		// delivered, so each event resolves on its own goroutine; the
		// store's ordered merge makes the final order arrival-independent.
		go s.resolveAndDeliver(ctx, ev)
	}

	s.mu.Lock()
	down := s.state == StateActive
	s.state = StateClosed
	onDown := s.onDown
	s.mu.Unlock()
	if down && onDown != nil {
		onDown(&SubscriptionError{RoomID: roomID, Err: errors.New("delivery channel closed")})
	}
}

func (s *LiveInsertSubscriber) resolveAndDeliver(ctx context.Context, ev RawInsert) {
	name := s.resolveName(ctx, ev.SenderID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		// In-flight event observed after Close; dropped silently.
		return
	}
	s.onMessage(Message{
		ID:         ev.ID,
		RoomID:     ev.RoomID,
		SenderID:   ev.SenderID,
		SenderName: name,
		Content:    ev.Content,
		AssetRef:   ev.AssetRef,
		SentAt:     ev.SentAt,
	})
}

// resolveName makes one bounded attempt at the profile boundary and falls
// back to the placeholder; delivery is never held up indefinitely by a
// secondary lookup.
func (s *LiveInsertSubscriber) resolveName(ctx context.Context, userID string) string {
	resolveCtx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()
	name, err := s.profiles.ResolveDisplayName(resolveCtx, userID)
	if err != nil || name == "" {
		if err != nil {
			s.logf("resolve display name for %s: %v", userID, err)
		}
		return PlaceholderName
	}
	return name
}
