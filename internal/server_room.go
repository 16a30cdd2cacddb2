package internal

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Room fans incoming insert events out to its live subscribers. Its run
// goroutine lives exactly as long as the hub tracks the room; the hub stops
// it when the last subscriber detaches.
type Room struct {
	id        string
	clients   map[*Client]bool
	broadcast chan []byte
	done      chan struct{}
	mutex     sync.RWMutex
}

func newRoom(id string) *Room {
	return &Room{
		id:        id,
		clients:   make(map[*Client]bool),
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
	}
}

func (room *Room) size() int {
	room.mutex.RLock()
	defer room.mutex.RUnlock()
	return len(room.clients)
}

func (room *Room) attach(client *Client) {
	room.mutex.Lock()
	defer room.mutex.Unlock()
	room.clients[client] = true
}

func (room *Room) detach(client *Client) {
	room.mutex.Lock()
	defer room.mutex.Unlock()
	if _, exists := room.clients[client]; exists {
		delete(room.clients, client)
		close(client.send)
	}
}

// stop ends the run goroutine. Only the hub calls it, after removing the
// room from its map, so it runs at most once.
func (room *Room) stop() {
	close(room.done)
}

func (room *Room) run() {
	for {
		select {
		case <-room.done:
			return
		case payload := <-room.broadcast:
			// Fan out to every subscriber. If one can't keep up we close
			// its send channel, which triggers cleanup in writePump; the
			// client resyncs from the backlog on reconnect.
			room.mutex.Lock()
			for client := range room.clients {
				select {
				case client.send <- payload:
				default:
					close(client.send)
					delete(room.clients, client)
				}
			}
			room.mutex.Unlock()
		}
	}
}

// Client wraps one subscriber websocket. The socket is delivery-only:
// messages are posted over HTTP, so anything the peer writes besides
// control frames is discarded.
type Client struct {
	conn         *websocket.Conn
	send         chan []byte
	userID       string
	onDisconnect func()
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 512
)

func newClient(conn *websocket.Conn, userID string, onDisconnect func()) *Client {
	return &Client{
		conn:         conn,
		send:         make(chan []byte, 256),
		userID:       userID,
		onDisconnect: onDisconnect,
	}
}

func (client *Client) readPump(hub *Hub, roomID string) {
	defer func() {
		client.conn.Close()
		hub.detach(roomID, client)
		if client.onDisconnect != nil {
			client.onDisconnect()
		}
	}()
	client.conn.SetReadLimit(maxMsgSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// Keeps pings/pongs flowing and detects the peer going away.
		if _, _, err := client.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
