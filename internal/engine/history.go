package engine

import "context"

// HistoryLoader performs the one-shot backlog fetch that seeds a session's
// MessageStore.
type HistoryLoader struct {
	history HistoryBoundary
}

func NewHistoryLoader(history HistoryBoundary) *HistoryLoader {
	return &HistoryLoader{history: history}
}

// Load fetches every message for the room. A transport or backend failure
// returns a FetchError and no rows; a row whose display name the backend
// could not resolve falls back to the placeholder instead of failing the
// whole load.
func (l *HistoryLoader) Load(ctx context.Context, roomID string) ([]Message, error) {
	rows, err := l.history.FetchMessages(ctx, roomID)
	if err != nil {
		return nil, &FetchError{RoomID: roomID, Err: err}
	}
	msgs := make([]Message, 0, len(rows))
	for _, row := range rows {
		name := row.SenderName
		if name == "" {
			name = PlaceholderName
		}
		msgs = append(msgs, Message{
			ID:         row.ID,
			RoomID:     row.RoomID,
			SenderID:   row.SenderID,
			SenderName: name,
			Content:    row.Content,
			AssetRef:   row.AssetRef,
			SentAt:     row.SentAt,
		})
	}
	return msgs, nil
}
