package internal

import (
	"testing"
	"time"
)

func TestHubFansOutToAttachedSubscribers(t *testing.T) {
	hub := NewHub()
	first := &Client{send: make(chan []byte, 1)}
	second := &Client{send: make(chan []byte, 1)}
	hub.attach("r1", first)
	hub.attach("r1", second)

	hub.Broadcast("r1", []byte("hello"))

	for _, client := range []*Client{first, second} {
		select {
		case got := <-client.send:
			if string(got) != "hello" {
				t.Fatalf("got %q, want %q", got, "hello")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the broadcast")
		}
	}
}

func TestHubStopsRoomWhenLastSubscriberDetaches(t *testing.T) {
	hub := NewHub()
	first := &Client{send: make(chan []byte, 1)}
	second := &Client{send: make(chan []byte, 1)}
	hub.attach("r1", first)
	hub.attach("r1", second)
	room := hub.rooms["r1"]

	hub.detach("r1", first)
	if !hub.Exists("r1") {
		t.Fatal("room should survive while a subscriber remains")
	}

	hub.detach("r1", second)
	if hub.Exists("r1") {
		t.Fatal("empty room should be dropped from the hub")
	}
	select {
	case <-room.done:
	case <-time.After(time.Second):
		t.Fatal("fan-out goroutine should stop when the room is dropped")
	}

	// Broadcasting to a dropped room is a no-op, and a second detach of an
	// already-detached client must not panic.
	hub.Broadcast("r1", []byte("late"))
	hub.detach("r1", second)
}
