package engine

import (
	"context"
	"fmt"
	"sync"
)

// Collaborators bundles the external boundaries a session needs. Nothing
// here is global; each session owns its handles for its whole lifetime.
type Collaborators struct {
	Auth        AuthBoundary
	History     HistoryBoundary
	Live        LiveInsertBoundary
	Profiles    ProfileBoundary
	Persistence PersistenceBoundary
	Notifier    Notifier
	Logf        func(format string, args ...interface{})
}

// EventKind discriminates session events delivered to the presentation
// layer.
type EventKind int

const (
	// EventInsert signals that a new message was merged into the timeline.
	EventInsert EventKind = iota
	// EventSubscriptionDown signals that the live subscription dropped and
	// the session is degraded; the caller recovers by re-opening.
	EventSubscriptionDown
)

// Event is an invalidation signal for the presentation layer. Consumers
// re-read Timeline rather than applying events incrementally, so a dropped
// event under backpressure costs a repaint, never correctness.
type Event struct {
	Kind    EventKind
	Message Message
	// ScrollToBottom carries the follow policy's verdict at delivery time:
	// scroll, or keep position and show the new-messages affordance.
	ScrollToBottom bool
	Err            error
}

// RoomSyncSession maintains the live timeline for exactly one room: it seeds
// the store from history, merges live inserts, applies the scroll-follow and
// notification policies, and coordinates sends. Sessions are single-use;
// after Close a new one must be opened.
type RoomSyncSession struct {
	roomID   string
	viewerID string

	store      *MessageStore
	subscriber *LiveInsertSubscriber
	dispatcher *NotificationDispatcher
	sender     *SendCoordinator

	mu     sync.Mutex
	policy *ScrollFollowPolicy
	closed bool

	cancel context.CancelFunc
	events chan Event
	logf   func(format string, args ...interface{})
}

// OpenSession resolves the viewer once, loads and seeds the full backlog,
// and establishes the live subscription. A logged-out viewer gets
// ErrNotAuthenticated. A history failure aborts the whole
// initialization; the caller gets no partially seeded session. The caller
// should perform one scroll-to-bottom as soon as the session is returned.
func OpenSession(ctx context.Context, roomID string, c Collaborators) (*RoomSyncSession, error) {
	logf := c.Logf
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}

	viewerID, err := c.Auth.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve viewer: %w", err)
	}
	if viewerID == "" {
		return nil, ErrNotAuthenticated
	}

	msgs, err := NewHistoryLoader(c.History).Load(ctx, roomID)
	if err != nil {
		return nil, err
	}

	sessionCtx, cancel := context.WithCancel(context.Background())

	s := &RoomSyncSession{
		roomID:     roomID,
		viewerID:   viewerID,
		store:      NewMessageStore(),
		subscriber: NewLiveInsertSubscriber(c.Live, c.Profiles, logf),
		dispatcher: NewNotificationDispatcher(c.Notifier, viewerID, logf),
		sender:     NewSendCoordinator(c.Persistence, roomID, viewerID),
		policy:     NewScrollFollowPolicy(),
		cancel:     cancel,
		events:     make(chan Event, 256),
		logf:       logf,
	}
	s.store.Seed(msgs)

	if err := s.subscriber.Open(sessionCtx, roomID, s.onInsert, s.onDown); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *RoomSyncSession) RoomID() string   { return s.roomID }
func (s *RoomSyncSession) ViewerID() string { return s.viewerID }

// Events returns the session's invalidation stream. The channel is closed
// by Close.
func (s *RoomSyncSession) Events() <-chan Event { return s.events }

// Snapshot returns the ordered timeline.
func (s *RoomSyncSession) Snapshot() []Message { return s.store.Snapshot() }

// Timeline returns the ordered timeline with sender-label grouping applied.
func (s *RoomSyncSession) Timeline() []LabeledMessage {
	return WithLabels(s.store.Snapshot())
}

// ObserveScroll feeds a fresh scroll sample into the follow policy.
func (s *RoomSyncSession) ObserveScroll(m ScrollMetrics) FollowMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Observe(m)
}

// FollowMode returns the current follow mode.
func (s *RoomSyncSession) FollowMode() FollowMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Mode()
}

// JumpToNewest handles the explicit affordance action: it forces auto mode;
// the caller performs the immediate scroll.
func (s *RoomSyncSession) JumpToNewest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy.JumpToNewest()
}

// Send composes and persists a draft. The sent message shows up in the
// timeline only via the live round trip.
func (s *RoomSyncSession) Send(ctx context.Context, draft Draft) error {
	return s.sender.Send(ctx, draft)
}

// Close tears the session down: the subscription is released, in-flight
// name resolutions are cancelled and their deliveries dropped, and the
// events channel is closed. Idempotent.
func (s *RoomSyncSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	// No callbacks can be running or started once Close returns, so closing
	// the events channel afterwards is safe.
	s.subscriber.Close()
	s.cancel()
	close(s.events)
}

// onInsert runs serialized on the subscriber's delivery path.
func (s *RoomSyncSession) onInsert(msg Message) {
	if !s.store.Insert(msg) {
		// Duplicate delivery: no new content, no notification.
		return
	}
	s.mu.Lock()
	scroll := s.policy.OnNewContent()
	s.mu.Unlock()

	s.publish(Event{Kind: EventInsert, Message: msg, ScrollToBottom: scroll})
	s.dispatcher.Dispatch(msg)
}

func (s *RoomSyncSession) onDown(err error) {
	s.publish(Event{Kind: EventSubscriptionDown, Err: err})
}

func (s *RoomSyncSession) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		// Consumers repaint from Timeline, so shedding a poke under
		// backpressure loses nothing durable.
		s.logf("session %s: event buffer full, dropping %d", s.roomID, ev.Kind)
	}
}
