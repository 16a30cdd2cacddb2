package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(id string, sentAt int64) Message {
	return Message{ID: id, RoomID: "r1", SenderID: "u1", SenderName: "alice", SentAt: sentAt}
}

func ids(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestInsertKeepsSentAtOrder(t *testing.T) {
	store := NewMessageStore()
	store.Seed([]Message{msg("m1", 10), msg("m2", 20)})

	// Out-of-order arrival: a concurrently sent message lands late.
	assert.True(t, store.Insert(msg("m3", 15)))

	assert.Equal(t, []string{"m1", "m3", "m2"}, ids(store.Snapshot()))
}

func TestInsertIsIdempotent(t *testing.T) {
	store := NewMessageStore()
	assert.True(t, store.Insert(msg("m1", 10)))
	assert.False(t, store.Insert(msg("m1", 10)), "duplicate id must be a no-op")
	assert.False(t, store.Insert(Message{ID: "m1", SentAt: 99}), "duplicate id wins even with a different timestamp")
	assert.Equal(t, 1, store.Len())
}

func TestInsertTiebreaksOnID(t *testing.T) {
	store := NewMessageStore()
	store.Insert(msg("b", 10))
	store.Insert(msg("a", 10))
	store.Insert(msg("c", 10))

	assert.Equal(t, []string{"a", "b", "c"}, ids(store.Snapshot()))
}

func TestInsertOrderIndependence(t *testing.T) {
	want := []string{"m0", "m1", "m2", "m3", "m4", "m5", "m6", "m7"}
	base := []Message{
		msg("m0", 1), msg("m1", 2), msg("m2", 2), msg("m3", 3),
		msg("m4", 5), msg("m5", 5), msg("m6", 8), msg("m7", 13),
	}

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		shuffled := make([]Message, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		// A few duplicate deliveries sprinkled in.
		shuffled = append(shuffled, shuffled[0], shuffled[3])

		store := NewMessageStore()
		for _, m := range shuffled {
			store.Insert(m)
		}
		require.Equal(t, want, ids(store.Snapshot()), "trial %d", trial)
	}
}

func TestSeedThenInsertPreservesSeededMessages(t *testing.T) {
	store := NewMessageStore()
	store.Seed([]Message{msg("m1", 10), msg("m2", 20), msg("m3", 30)})

	store.Insert(msg("m4", 25))
	store.Insert(msg("m5", 5))
	store.Insert(msg("m2", 20))

	assert.Equal(t, []string{"m5", "m1", "m2", "m4", "m3"}, ids(store.Snapshot()))
}

func TestSeedReplacesWholesale(t *testing.T) {
	store := NewMessageStore()
	store.Seed([]Message{msg("old", 1)})
	store.Seed([]Message{msg("m1", 10)})

	assert.Equal(t, []string{"m1"}, ids(store.Snapshot()))
	assert.True(t, store.Insert(msg("old", 1)), "previous seed must not leak ids into the new one")
}

func TestSnapshotIsACopy(t *testing.T) {
	store := NewMessageStore()
	store.Seed([]Message{msg("m1", 10), msg("m2", 20)})

	snap := store.Snapshot()
	snap[0].Content = "mutated"

	assert.Empty(t, store.Snapshot()[0].Content)
}
