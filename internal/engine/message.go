package engine

// Message is one entry in a room timeline. ID is assigned by the backend and
// is stable across the history fetch and live-insert delivery; SentAt is the
// server timestamp in unix milliseconds and is the sole ordering key, with ID
// breaking ties.
type Message struct {
	ID         string
	RoomID     string
	SenderID   string
	SenderName string
	Content    string
	AssetRef   string
	SentAt     int64
}

// Before reports whether m sorts ahead of other in the (SentAt, ID) order.
func (m Message) Before(other Message) bool {
	if m.SentAt != other.SentAt {
		return m.SentAt < other.SentAt
	}
	return m.ID < other.ID
}

// LabeledMessage pairs a message with its derived display flag.
type LabeledMessage struct {
	Message
	// ShowLabel is true when the sender label should be rendered, i.e. the
	// sender name differs from the previous message in canonical order.
	ShowLabel bool
}

// WithLabels computes the sender-label grouping for an already ordered
// sequence. The first message always shows its label.
func WithLabels(msgs []Message) []LabeledMessage {
	labeled := make([]LabeledMessage, 0, len(msgs))
	for i, msg := range msgs {
		show := i == 0 || msg.SenderName != msgs[i-1].SenderName
		labeled = append(labeled, LabeledMessage{Message: msg, ShowLabel: show})
	}
	return labeled
}
