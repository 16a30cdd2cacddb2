package engine

import "context"

// SendCoordinator composes outgoing messages and hands them to the
// persistence boundary. It never touches the MessageStore: the sent message
// becomes visible only once it returns through the live-insert channel,
// exactly like any other participant's message.
type SendCoordinator struct {
	persistence PersistenceBoundary
	roomID      string
	viewerID    string
}

func NewSendCoordinator(persistence PersistenceBoundary, roomID, viewerID string) *SendCoordinator {
	return &SendCoordinator{persistence: persistence, roomID: roomID, viewerID: viewerID}
}

// Send persists a draft. An empty draft is a no-op; an image-only draft gets
// the fixed placeholder caption before handoff. ErrNotAuthenticated is
// returned synchronously when no viewer identity was resolved.
func (c *SendCoordinator) Send(ctx context.Context, draft Draft) error {
	if c.viewerID == "" {
		return ErrNotAuthenticated
	}
	if draft.Content == "" && draft.AssetRef == "" {
		return nil
	}
	content := draft.Content
	if content == "" {
		content = PlaceholderCaption
	}
	err := c.persistence.CreateMessage(ctx, NewMessage{
		RoomID:   c.roomID,
		SenderID: c.viewerID,
		Content:  content,
		AssetRef: draft.AssetRef,
	})
	if err != nil {
		return &SendError{RoomID: c.roomID, Err: err}
	}
	return nil
}
