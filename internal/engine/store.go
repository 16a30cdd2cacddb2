package engine

import (
	"sort"
	"sync"
)

// MessageStore keeps the ordered, deduplicated timeline for a single room.
// It does no I/O and is fully deterministic given its call sequence; the
// mutex only serializes access between the delivery goroutine and readers.
type MessageStore struct {
	mu       sync.Mutex
	messages []Message
	ids      map[string]struct{}
}

func NewMessageStore() *MessageStore {
	return &MessageStore{ids: make(map[string]struct{})}
}

// Seed replaces the store contents wholesale. It is used once per session
// with the history snapshot. Rows with duplicate ids collapse to the first
// occurrence and the result is normalized to (SentAt, ID) order.
func (s *MessageStore) Seed(msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = make([]Message, 0, len(msgs))
	s.ids = make(map[string]struct{}, len(msgs))
	for _, msg := range msgs {
		if _, seen := s.ids[msg.ID]; seen {
			continue
		}
		s.ids[msg.ID] = struct{}{}
		s.messages = append(s.messages, msg)
	}
	sort.Slice(s.messages, func(i, j int) bool {
		return s.messages[i].Before(s.messages[j])
	})
}

// Insert merges a single message into the timeline, keeping (SentAt, ID)
// order. A message whose id is already present is ignored, which makes the
// store the sole dedup point for at-least-once delivery. The return value
// reports whether the timeline changed.
func (s *MessageStore) Insert(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.ids[msg.ID]; seen {
		return false
	}
	s.ids[msg.ID] = struct{}{}
	// Live delivery order is not arrival order under concurrent senders, so
	// the insert position is found by search, not assumed to be the tail.
	at := sort.Search(len(s.messages), func(i int) bool {
		return msg.Before(s.messages[i])
	})
	s.messages = append(s.messages, Message{})
	copy(s.messages[at+1:], s.messages[at:])
	s.messages[at] = msg
	return true
}

// Len returns the number of distinct messages held.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Snapshot returns a copy of the current ordered timeline.
func (s *MessageStore) Snapshot() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
