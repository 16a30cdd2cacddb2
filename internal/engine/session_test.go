package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCollaborators(live *fakeLive) Collaborators {
	return Collaborators{
		Auth: &fakeAuth{id: "viewer"},
		History: &fakeHistory{rows: []HistoryRow{
			{ID: "m1", RoomID: "r1", SenderID: "u1", SenderName: "alice", Content: "first", SentAt: 10},
			{ID: "m2", RoomID: "r1", SenderID: "u2", SenderName: "bob", Content: "second", SentAt: 20},
		}},
		Live:        live,
		Profiles:    &fakeProfiles{names: map[string]string{"u1": "alice", "u2": "bob", "viewer": "me"}},
		Persistence: &fakePersistence{},
		Notifier:    &fakeNotifier{granted: true},
	}
}

func waitForLen(t *testing.T, s *RoomSyncSession, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(s.Snapshot()) == n }, time.Second, 5*time.Millisecond)
}

func TestSessionSeedsFromHistory(t *testing.T) {
	live := newFakeLive()
	s, err := OpenSession(context.Background(), "r1", testCollaborators(live))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, []string{"m1", "m2"}, ids(s.Snapshot()))
	assert.Equal(t, "viewer", s.ViewerID())
	assert.Equal(t, FollowAuto, s.FollowMode(), "initial load scrolls to bottom")
}

func TestSessionMergesOutOfOrderInsert(t *testing.T) {
	live := newFakeLive()
	s, err := OpenSession(context.Background(), "r1", testCollaborators(live))
	require.NoError(t, err)
	defer s.Close()

	// Arrives after m2 despite being sent before it.
	live.ch <- rawInsert("m3", "u1", 15)

	waitForLen(t, s, 3)
	assert.Equal(t, []string{"m1", "m3", "m2"}, ids(s.Snapshot()))
}

func TestSessionEmitsInsertEventWithScrollVerdict(t *testing.T) {
	live := newFakeLive()
	s, err := OpenSession(context.Background(), "r1", testCollaborators(live))
	require.NoError(t, err)
	defer s.Close()

	live.ch <- rawInsert("m3", "u2", 30)

	select {
	case ev := <-s.Events():
		assert.Equal(t, EventInsert, ev.Kind)
		assert.Equal(t, "m3", ev.Message.ID)
		assert.True(t, ev.ScrollToBottom, "auto mode scrolls")
	case <-time.After(time.Second):
		t.Fatal("expected an insert event")
	}

	// Reading backlog: the next insert must hold position.
	s.ObserveScroll(ScrollMetrics{ScrollTop: 0, ScrollHeight: 1000, ClientHeight: 300})
	live.ch <- rawInsert("m4", "u2", 40)

	select {
	case ev := <-s.Events():
		assert.False(t, ev.ScrollToBottom, "held mode surfaces the affordance instead")
	case <-time.After(time.Second):
		t.Fatal("expected an insert event")
	}
}

func TestSessionDuplicateDeliveryIsInvisible(t *testing.T) {
	live := newFakeLive()
	c := testCollaborators(live)
	notifier := c.Notifier.(*fakeNotifier)
	s, err := OpenSession(context.Background(), "r1", c)
	require.NoError(t, err)
	defer s.Close()

	live.ch <- rawInsert("m3", "u2", 30)
	live.ch <- rawInsert("m3", "u2", 30)

	waitForLen(t, s, 3)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, len(s.Snapshot()))
	assert.Len(t, notifier.raises(), 1, "a redelivered message must not notify twice")
}

func TestSessionSuppressesOwnNotifications(t *testing.T) {
	live := newFakeLive()
	c := testCollaborators(live)
	notifier := c.Notifier.(*fakeNotifier)
	s, err := OpenSession(context.Background(), "r1", c)
	require.NoError(t, err)
	defer s.Close()

	live.ch <- rawInsert("m3", "viewer", 30)

	waitForLen(t, s, 3)
	assert.Empty(t, notifier.raises())
}

func TestSessionNeverNotifiesForSeed(t *testing.T) {
	live := newFakeLive()
	c := testCollaborators(live)
	notifier := c.Notifier.(*fakeNotifier)
	s, err := OpenSession(context.Background(), "r1", c)
	require.NoError(t, err)
	defer s.Close()

	assert.Empty(t, notifier.raises(), "opening a room must not cause a notification storm")
}

func TestSessionTimelineLabels(t *testing.T) {
	live := newFakeLive()
	s, err := OpenSession(context.Background(), "r1", testCollaborators(live))
	require.NoError(t, err)
	defer s.Close()

	live.ch <- rawInsert("m3", "u2", 30)
	waitForLen(t, s, 3)

	timeline := s.Timeline()
	require.Len(t, timeline, 3)
	assert.True(t, timeline[0].ShowLabel)
	assert.True(t, timeline[1].ShowLabel)
	assert.False(t, timeline[2].ShowLabel, "consecutive bob messages group under one label")
}

func TestSessionRequiresResolvedViewer(t *testing.T) {
	live := newFakeLive()
	c := testCollaborators(live)
	// Empty id with a nil error is the logged-out signal.
	c.Auth = &fakeAuth{}

	s, err := OpenSession(context.Background(), "r1", c)

	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Nil(t, s)
}

func TestSessionAbortsOnHistoryFailure(t *testing.T) {
	live := newFakeLive()
	c := testCollaborators(live)
	c.History = &fakeHistory{err: errors.New("boom")}

	s, err := OpenSession(context.Background(), "r1", c)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Nil(t, s, "no partially seeded session")
}

func TestSessionSurfacesSubscriptionDrop(t *testing.T) {
	live := newFakeLive()
	s, err := OpenSession(context.Background(), "r1", testCollaborators(live))
	require.NoError(t, err)
	defer s.Close()

	close(live.ch)

	select {
	case ev := <-s.Events():
		assert.Equal(t, EventSubscriptionDown, ev.Kind)
		var subErr *SubscriptionError
		assert.ErrorAs(t, ev.Err, &subErr)
	case <-time.After(time.Second):
		t.Fatal("expected a subscription-down event")
	}
}

func TestSessionSendRoundTripOnly(t *testing.T) {
	live := newFakeLive()
	c := testCollaborators(live)
	persistence := c.Persistence.(*fakePersistence)
	s, err := OpenSession(context.Background(), "r1", c)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Send(context.Background(), Draft{Content: "hello"}))

	created := persistence.created()
	require.Len(t, created, 1)
	assert.Equal(t, "viewer", created[0].SenderID)
	// No optimistic echo: the timeline stays untouched until the live
	// channel delivers the round trip.
	assert.Len(t, s.Snapshot(), 2)

	live.ch <- RawInsert{ID: "m9", RoomID: "r1", SenderID: "viewer", Content: "hello", SentAt: 99}
	waitForLen(t, s, 3)
}

func TestSessionCloseIsIdempotentAndFinal(t *testing.T) {
	live := newFakeLive()
	s, err := OpenSession(context.Background(), "r1", testCollaborators(live))
	require.NoError(t, err)

	s.Close()
	assert.NotPanics(t, s.Close)

	_, open := <-s.Events()
	assert.False(t, open, "events channel closes with the session")
}
