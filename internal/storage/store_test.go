package storage

import (
	"context"
	"testing"
	"time"
)

func TestUserLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	id, err := store.CreateUser(ctx, "alice", []byte("hash"))
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if id == "" {
		t.Fatalf("expected non-empty id")
	}
	if _, err := store.CreateUser(ctx, "alice", []byte("hash2")); err == nil {
		t.Fatalf("expected duplicate error")
	}

	user, err := store.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil || user.Username != "alice" {
		t.Fatalf("unexpected user: %+v", user)
	}
	byID, err := store.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if byID == nil || byID.Username != "alice" {
		t.Fatalf("unexpected user by id: %+v", byID)
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	userID, err := store.CreateUser(ctx, "bob", []byte("hash"))
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	exp := time.Now().Add(time.Hour)
	if err := store.CreateSession(ctx, userID, "token123", exp); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	session, err := store.GetSession(ctx, "token123")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session == nil || session.UserID != userID {
		t.Fatalf("unexpected session: %+v", session)
	}
	if err := store.DeleteSession(ctx, "token123"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	session, err = store.GetSession(ctx, "token123")
	if err != nil {
		t.Fatalf("GetSession after delete: %v", err)
	}
	if session != nil {
		t.Fatalf("expected nil session after delete")
	}
}

func TestRoomMembership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	aliceID, _ := store.CreateUser(ctx, "alice", []byte("hash1"))
	bobID, _ := store.CreateUser(ctx, "bob", []byte("hash2"))

	room, err := store.CreateRoom(ctx, "general", aliceID)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.ID == "" || room.Members != 1 {
		t.Fatalf("unexpected room: %+v", room)
	}

	member, err := store.IsMember(ctx, room.ID, aliceID)
	if err != nil || !member {
		t.Fatalf("creator should be a member, got member=%v err=%v", member, err)
	}
	member, err = store.IsMember(ctx, room.ID, bobID)
	if err != nil || member {
		t.Fatalf("bob should not be a member yet, got member=%v err=%v", member, err)
	}

	if err := store.AddMember(ctx, room.ID, bobID); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := store.AddMember(ctx, room.ID, bobID); err != nil {
		t.Fatalf("AddMember idempotent: %v", err)
	}

	rooms, err := store.ListRoomsForUser(ctx, bobID)
	if err != nil {
		t.Fatalf("ListRoomsForUser: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Title != "general" || rooms[0].Members != 2 {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}

	if _, err := store.GetRoom(ctx, "missing"); err != ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestMessagesOrderedBySentAtThenID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	aliceID, _ := store.CreateUser(ctx, "alice", []byte("hash1"))
	room, err := store.CreateRoom(ctx, "general", aliceID)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	// Inserted newest first; the backlog query must come back oldest first
	// with the id breaking the sent_at tie.
	inserts := []MessageRow{
		{ID: "m3", RoomID: room.ID, SenderID: aliceID, Content: "third", SentAt: 20},
		{ID: "m1", RoomID: room.ID, SenderID: aliceID, Content: "first", SentAt: 10},
		{ID: "m2", RoomID: room.ID, SenderID: aliceID, Content: "tied with m3", SentAt: 20},
	}
	for _, msg := range inserts {
		if err := store.InsertMessage(ctx, msg); err != nil {
			t.Fatalf("InsertMessage %s: %v", msg.ID, err)
		}
	}

	messages, err := store.ListMessages(ctx, room.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	wantOrder := []string{"m1", "m2", "m3"}
	for i, want := range wantOrder {
		if messages[i].ID != want {
			t.Fatalf("position %d: got %s, want %s", i, messages[i].ID, want)
		}
	}
	if messages[0].SenderName != "alice" {
		t.Fatalf("expected joined sender name, got %q", messages[0].SenderName)
	}
}

func TestMessagesFromDeletedSenderKeepEmptyName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	aliceID, _ := store.CreateUser(ctx, "alice", []byte("hash1"))
	room, err := store.CreateRoom(ctx, "general", aliceID)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	ghost := MessageRow{ID: "m1", RoomID: room.ID, SenderID: "gone", Content: "hello", SentAt: 10}
	if err := store.InsertMessage(ctx, ghost); err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}
	messages, err := store.ListMessages(ctx, room.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 1 || messages[0].SenderName != "" {
		t.Fatalf("expected empty sender name for unknown sender, got %+v", messages)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := "sqlite://file:" + t.Name() + "?mode=memory&cache=shared"
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
