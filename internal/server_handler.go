package internal

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the request and attaches the subscriber to the room's
// fan-out. Membership is checked before the upgrade so a rejected client
// gets a proper HTTP status.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	authCtx, err := s.authenticateRequest(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		http.Error(w, "missing room query param", http.StatusBadRequest)
		return
	}
	if _, err := s.store.GetRoom(r.Context(), roomID); err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	member, err := s.store.IsMember(r.Context(), roomID, authCtx.UserID)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !member {
		http.Error(w, "not a member of this room", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}

	s.metrics.IncConn()
	s.presence.Increment(authCtx.UserID)
	client := newClient(conn, authCtx.UserID, func() {
		s.metrics.DecConn()
		s.presence.Decrement(authCtx.UserID)
	})
	s.hub.attach(roomID, client)

	go client.writePump()
	go client.readPump(s.hub, roomID)
}
