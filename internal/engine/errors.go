package engine

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned by SendCoordinator when no viewer identity
// has been resolved. It is rejected synchronously, never silently dropped.
var ErrNotAuthenticated = errors.New("no authenticated viewer")

// PlaceholderName substitutes a sender display name that could not be
// resolved.
const PlaceholderName = "Unknown"

// PlaceholderCaption is the content substituted for an image-only send
// before handoff to the persistence boundary.
const PlaceholderCaption = "📷 Photo"

// FetchError means the history load failed. It is fatal to session
// initialization; no partial timeline is ever seeded.
type FetchError struct {
	RoomID string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch history for room %s: %v", e.RoomID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SubscriptionError means the live-insert subscription could not be
// established or dropped mid-session. The engine does not reconnect on its
// own; the caller recovers by opening a fresh session.
type SubscriptionError struct {
	RoomID string
	Err    error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("live subscription for room %s: %v", e.RoomID, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// SendError means the persistence boundary rejected a send. The message is
// not added to the timeline, consistent with the no-local-echo rule.
type SendError struct {
	RoomID string
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to room %s: %v", e.RoomID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
