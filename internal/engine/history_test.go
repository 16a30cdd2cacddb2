package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMapsRowsInOrder(t *testing.T) {
	loader := NewHistoryLoader(&fakeHistory{rows: []HistoryRow{
		{ID: "m1", RoomID: "r1", SenderID: "u1", SenderName: "alice", Content: "hi", SentAt: 10},
		{ID: "m2", RoomID: "r1", SenderID: "u2", SenderName: "bob", Content: "yo", SentAt: 20},
	}})

	msgs, err := loader.Load(context.Background(), "r1")

	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "alice", msgs[0].SenderName)
	assert.Equal(t, int64(20), msgs[1].SentAt)
}

func TestLoadFallsBackToPlaceholderName(t *testing.T) {
	loader := NewHistoryLoader(&fakeHistory{rows: []HistoryRow{
		{ID: "m1", RoomID: "r1", SenderID: "u1", Content: "hi", SentAt: 10},
	}})

	msgs, err := loader.Load(context.Background(), "r1")

	require.NoError(t, err)
	assert.Equal(t, PlaceholderName, msgs[0].SenderName, "a single unresolved row must not fail the load")
}

func TestLoadWrapsTransportFailure(t *testing.T) {
	boom := errors.New("connection refused")
	loader := NewHistoryLoader(&fakeHistory{err: boom})

	msgs, err := loader.Load(context.Background(), "r1")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "r1", fetchErr.RoomID)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, msgs, "no partial result on failure")
}
