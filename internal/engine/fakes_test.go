package engine

import (
	"context"
	"sync"
)

type fakeAuth struct {
	id  string
	err error
}

func (f *fakeAuth) CurrentUserID(context.Context) (string, error) { return f.id, f.err }

type fakeHistory struct {
	rows []HistoryRow
	err  error
}

func (f *fakeHistory) FetchMessages(context.Context, string) ([]HistoryRow, error) {
	return f.rows, f.err
}

// fakeLive hands out a caller-controlled channel so tests can script
// delivery order, duplicates, and drops.
type fakeLive struct {
	ch      chan RawInsert
	openErr error
}

func newFakeLive() *fakeLive {
	return &fakeLive{ch: make(chan RawInsert, 16)}
}

func (f *fakeLive) Subscribe(context.Context, string) (<-chan RawInsert, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.ch, nil
}

type fakeProfiles struct {
	mu    sync.Mutex
	names map[string]string
	err   error
	// block, when non-nil, stalls resolution until the channel is closed.
	block chan struct{}
}

func (f *fakeProfiles) ResolveDisplayName(ctx context.Context, userID string) (string, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.names[userID], nil
}

type fakePersistence struct {
	mu    sync.Mutex
	calls []NewMessage
	err   error
}

func (f *fakePersistence) CreateMessage(_ context.Context, msg NewMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, msg)
	return nil
}

func (f *fakePersistence) created() []NewMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]NewMessage, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeNotifier struct {
	mu       sync.Mutex
	granted  bool
	raiseErr error
	raised   [][2]string
}

func (f *fakeNotifier) PermissionGranted() bool { return f.granted }

func (f *fakeNotifier) Raise(title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.raiseErr != nil {
		return f.raiseErr
	}
	f.raised = append(f.raised, [2]string{title, body})
	return nil
}

func (f *fakeNotifier) raises() [][2]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][2]string, len(f.raised))
	copy(out, f.raised)
	return out
}
