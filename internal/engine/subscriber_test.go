package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector gathers delivered messages across goroutines.
type collector struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *collector) deliver(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collector) all() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func rawInsert(id, sender string, sentAt int64) RawInsert {
	return RawInsert{ID: id, RoomID: "r1", SenderID: sender, Content: "body " + id, SentAt: sentAt}
}

func TestOpenTransitionsToActive(t *testing.T) {
	live := newFakeLive()
	sub := NewLiveInsertSubscriber(live, &fakeProfiles{names: map[string]string{}}, nil)
	require.Equal(t, StateIdle, sub.State())

	require.NoError(t, sub.Open(context.Background(), "r1", func(Message) {}, nil))
	assert.Equal(t, StateActive, sub.State())

	sub.Close()
	assert.Equal(t, StateClosed, sub.State())
}

func TestOpenFailureSurfacesSubscriptionError(t *testing.T) {
	live := newFakeLive()
	live.openErr = errors.New("dial refused")
	sub := NewLiveInsertSubscriber(live, &fakeProfiles{}, nil)

	err := sub.Open(context.Background(), "r1", func(Message) {}, nil)

	var subErr *SubscriptionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "r1", subErr.RoomID)
	assert.Equal(t, StateClosed, sub.State())
}

func TestOpenTwiceIsRejected(t *testing.T) {
	live := newFakeLive()
	sub := NewLiveInsertSubscriber(live, &fakeProfiles{names: map[string]string{}}, nil)
	require.NoError(t, sub.Open(context.Background(), "r1", func(Message) {}, nil))
	defer sub.Close()

	assert.Error(t, sub.Open(context.Background(), "r1", func(Message) {}, nil))
}

func TestDeliveryResolvesSenderName(t *testing.T) {
	live := newFakeLive()
	profiles := &fakeProfiles{names: map[string]string{"u2": "bob"}}
	sub := NewLiveInsertSubscriber(live, profiles, nil)

	got := &collector{}
	require.NoError(t, sub.Open(context.Background(), "r1", got.deliver, nil))
	defer sub.Close()

	live.ch <- rawInsert("m1", "u2", 10)

	require.Eventually(t, func() bool { return got.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "bob", got.all()[0].SenderName)
	assert.Equal(t, "body m1", got.all()[0].Content)
}

func TestDeliveryFallsBackOnResolutionFailure(t *testing.T) {
	live := newFakeLive()
	profiles := &fakeProfiles{err: errors.New("profile service down")}
	sub := NewLiveInsertSubscriber(live, profiles, nil)

	got := &collector{}
	require.NoError(t, sub.Open(context.Background(), "r1", got.deliver, nil))
	defer sub.Close()

	live.ch <- rawInsert("m1", "u2", 10)

	require.Eventually(t, func() bool { return got.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, PlaceholderName, got.all()[0].SenderName, "delivery proceeds with the placeholder, never drops")
}

func TestCloseDropsInFlightDeliveries(t *testing.T) {
	live := newFakeLive()
	profiles := &fakeProfiles{names: map[string]string{"u2": "bob"}, block: make(chan struct{})}
	sub := NewLiveInsertSubscriber(live, profiles, nil)

	got := &collector{}
	require.NoError(t, sub.Open(context.Background(), "r1", got.deliver, nil))

	// The event arrives, then the session closes while its name lookup is
	// still outstanding.
	live.ch <- rawInsert("m1", "u2", 10)
	time.Sleep(20 * time.Millisecond)
	sub.Close()
	close(profiles.block)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, got.count(), "no callbacks after Close, even for in-flight events")
}

func TestCloseIsIdempotent(t *testing.T) {
	live := newFakeLive()
	sub := NewLiveInsertSubscriber(live, &fakeProfiles{names: map[string]string{}}, nil)
	require.NoError(t, sub.Open(context.Background(), "r1", func(Message) {}, nil))

	sub.Close()
	assert.NotPanics(t, sub.Close)
	assert.Equal(t, StateClosed, sub.State())
}

func TestChannelCloseReportsSubscriptionDown(t *testing.T) {
	live := newFakeLive()
	sub := NewLiveInsertSubscriber(live, &fakeProfiles{names: map[string]string{}}, nil)

	downs := make(chan error, 1)
	require.NoError(t, sub.Open(context.Background(), "r1", func(Message) {}, func(err error) { downs <- err }))

	close(live.ch)

	select {
	case err := <-downs:
		var subErr *SubscriptionError
		require.ErrorAs(t, err, &subErr)
	case <-time.After(time.Second):
		t.Fatal("expected a subscription-down signal")
	}
	assert.Equal(t, StateClosed, sub.State())
}

func TestChannelCloseAfterCloseStaysSilent(t *testing.T) {
	live := newFakeLive()
	sub := NewLiveInsertSubscriber(live, &fakeProfiles{names: map[string]string{}}, nil)

	downs := make(chan error, 1)
	require.NoError(t, sub.Open(context.Background(), "r1", func(Message) {}, func(err error) { downs <- err }))

	sub.Close()
	close(live.ch)

	select {
	case err := <-downs:
		t.Fatalf("unexpected down signal after Close: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}
