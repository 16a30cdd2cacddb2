package internal

import "sync"

// Hub tracks the live fan-out state for every room with at least one
// subscriber. Rooms come and go with their subscribers; durable state lives
// in the store.
type Hub struct {
	mutex sync.RWMutex
	rooms map[string]*Room
}

// NewHub builds an empty hub ready to serve subscriptions.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*Room)}
}

// Exists reports whether a room currently has live subscribers.
func (hub *Hub) Exists(roomID string) bool {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	_, ok := hub.rooms[roomID]
	return ok
}

// attach registers a subscriber, creating the room and starting its fan-out
// goroutine on first use. Registration happens under the hub lock so a
// concurrent detach cannot tear the room down in between.
func (hub *Hub) attach(roomID string, client *Client) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	room, exists := hub.rooms[roomID]
	if !exists {
		room = newRoom(roomID)
		hub.rooms[roomID] = room
		go room.run()
	}
	room.attach(client)
}

// detach removes a subscriber and, when it was the last one, drops the room
// and stops its fan-out goroutine.
func (hub *Hub) detach(roomID string, client *Client) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	room, exists := hub.rooms[roomID]
	if !exists {
		return
	}
	room.detach(client)
	if room.size() == 0 {
		delete(hub.rooms, roomID)
		room.stop()
	}
}

// Broadcast pushes an encoded insert event to every subscriber of the room.
// A room with no live subscribers is a no-op; late joiners get the message
// from the backlog instead.
func (hub *Hub) Broadcast(roomID string, payload []byte) {
	hub.mutex.RLock()
	room := hub.rooms[roomID]
	hub.mutex.RUnlock()
	if room == nil {
		return
	}
	room.broadcast <- payload
}
