package engine

import "context"

// The engine never talks to a backend directly; every collaborator is an
// interface handed in through constructors so sessions own their
// dependencies explicitly.

// RawInsert is a newly created message as delivered by the live-insert
// channel. The sender display name is not part of the payload and has to be
// resolved separately.
type RawInsert struct {
	ID       string `json:"id"`
	RoomID   string `json:"room_id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
	AssetRef string `json:"asset_ref,omitempty"`
	SentAt   int64  `json:"sent_at"`
}

// HistoryRow is one backlog entry as returned by the history boundary,
// already joined with the sender display name where the backend knows it.
type HistoryRow struct {
	ID         string `json:"id"`
	RoomID     string `json:"room_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	AssetRef   string `json:"asset_ref,omitempty"`
	SentAt     int64  `json:"sent_at"`
}

// Draft is an outgoing message before the backend assigns id and timestamp.
type Draft struct {
	Content  string
	AssetRef string
}

// NewMessage is the payload handed to the persistence boundary.
type NewMessage struct {
	RoomID   string
	SenderID string
	Content  string
	AssetRef string
}

// AuthBoundary resolves the viewer identity once per session. An empty id
// with a nil error means nobody is logged in.
type AuthBoundary interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// HistoryBoundary fetches the full backlog for a room ordered by sent_at.
type HistoryBoundary interface {
	FetchMessages(ctx context.Context, roomID string) ([]HistoryRow, error)
}

// LiveInsertBoundary establishes a standing subscription scoped to one room.
// A successful return means the delivery channel is ready; the channel is
// closed when the subscription drops or ctx is cancelled. Delivery is
// at-least-once and may be out of order.
type LiveInsertBoundary interface {
	Subscribe(ctx context.Context, roomID string) (<-chan RawInsert, error)
}

// ProfileBoundary resolves a user id to a display name.
type ProfileBoundary interface {
	ResolveDisplayName(ctx context.Context, userID string) (string, error)
}

// PersistenceBoundary creates a message. Success is observed only via the
// live-insert round trip, never via this call's return value.
type PersistenceBoundary interface {
	CreateMessage(ctx context.Context, msg NewMessage) error
}

// Notifier is the platform notification primitive. Both methods are
// best-effort; Raise failures are swallowed by the dispatcher.
type Notifier interface {
	PermissionGranted() bool
	Raise(title, body string) error
}
