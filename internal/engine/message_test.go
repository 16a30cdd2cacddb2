package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func named(id, sender string, sentAt int64) Message {
	return Message{ID: id, SenderName: sender, SentAt: sentAt}
}

func TestWithLabelsGroupsConsecutiveSenders(t *testing.T) {
	labeled := WithLabels([]Message{
		named("m1", "alice", 1),
		named("m2", "alice", 2),
		named("m3", "bob", 3),
		named("m4", "alice", 4),
		named("m5", "alice", 5),
	})

	got := make([]bool, 0, len(labeled))
	for _, l := range labeled {
		got = append(got, l.ShowLabel)
	}
	assert.Equal(t, []bool{true, false, true, true, false}, got)
}

func TestWithLabelsFirstMessageAlwaysShows(t *testing.T) {
	labeled := WithLabels([]Message{named("m1", "alice", 1)})
	assert.True(t, labeled[0].ShowLabel)
}

func TestWithLabelsEmpty(t *testing.T) {
	assert.Empty(t, WithLabels(nil))
}
