package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"liveroom/internal/engine"
	"liveroom/internal/storage"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

type profileDTO struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type roomDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedBy string `json:"created_by"`
	Members   int    `json:"members"`
}

type roomListResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type createRoomRequest struct {
	Title string `json:"title"`
}

type historyResponse struct {
	Messages []engine.HistoryRow `json:"messages"`
}

type createMessageRequest struct {
	RoomID   string `json:"room_id"`
	Content  string `json:"content"`
	AssetRef string `json:"asset_ref"`
}

func (s *Server) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !s.authLimiter.Allow(s.clientIP(r)) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, errors.New("username and password are required"))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	userID, err := s.store.CreateUser(r.Context(), username, hash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			writeError(w, http.StatusConflict, errors.New("username already taken"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.IncSignup()
	writeJSON(w, http.StatusCreated, profileDTO{UserID: userID, Username: username})
}

func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !s.authLimiter.Allow(s.clientIP(r)) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, errors.New("username and password are required"))
		return
	}
	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		writeError(w, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	token := uuid.NewString()
	expiresAt := time.Now().Add(s.tokenTTL)
	if err := s.store.CreateSession(r.Context(), user.ID, token, expiresAt); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.IncLogin()
	writeJSON(w, http.StatusOK, loginResponse{Token: token, UserID: user.ID, Username: user.Username, ExpiresAt: expiresAt})
}

func (s *Server) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	authCtx, err := s.authenticateRequest(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if err := s.store.DeleteSession(r.Context(), authCtx.Token); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe resolves the bearer token to its owner. Clients use this to
// establish the viewer identity before opening a room.
func (s *Server) HandleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	authCtx, err := s.authenticateRequest(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileDTO{UserID: authCtx.UserID, Username: authCtx.Username})
}

// HandleProfile serves the display name for an arbitrary user id.
func (s *Server) HandleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, err := s.authenticateRequest(r); err != nil {
		writeAuthError(w, err)
		return
	}
	userID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/profiles/"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("user id required"))
		return
	}
	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if user == nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, profileDTO{UserID: user.ID, Username: user.Username})
}

func (s *Server) HandleRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRooms(w, r)
	case http.MethodPost:
		s.createRoom(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	authCtx, err := s.authenticateRequest(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	rooms, err := s.store.ListRoomsForUser(r.Context(), authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := roomListResponse{Rooms: make([]roomDTO, 0, len(rooms))}
	for _, room := range rooms {
		resp.Rooms = append(resp.Rooms, roomDTO{ID: room.ID, Title: room.Title, CreatedBy: room.CreatedBy, Members: room.Members})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	authCtx, err := s.authenticateRequest(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	var req createRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, errors.New("room title required"))
		return
	}
	room, err := s.store.CreateRoom(r.Context(), title, authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, roomDTO{ID: room.ID, Title: room.Title, CreatedBy: room.CreatedBy, Members: room.Members})
}

// HandleRoomSubpath dispatches /rooms/{id}/join and /rooms/{id}/messages.
func (s *Server) HandleRoomSubpath(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/rooms/")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	roomID, action := parts[0], parts[1]
	switch action {
	case "join":
		s.joinRoom(w, r, roomID)
	case "messages":
		s.listMessages(w, r, roomID)
	default:
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	}
}

func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	authCtx, err := s.authenticateRequest(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if _, err := s.store.GetRoom(r.Context(), roomID); err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.store.AddMember(r.Context(), roomID, authCtx.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request, roomID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	authCtx, err := s.authenticateRequest(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	member, err := s.store.IsMember(r.Context(), roomID, authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !member {
		http.Error(w, "not a member of this room", http.StatusForbidden)
		return
	}
	rows, err := s.store.ListMessages(r.Context(), roomID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := historyResponse{Messages: make([]engine.HistoryRow, 0, len(rows))}
	for _, row := range rows {
		resp.Messages = append(resp.Messages, engine.HistoryRow{
			ID:         row.ID,
			RoomID:     row.RoomID,
			SenderID:   row.SenderID,
			SenderName: row.SenderName,
			Content:    row.Content,
			AssetRef:   row.AssetRef,
			SentAt:     row.SentAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleCreateMessage persists a new message and pushes the insert event to
// live subscribers. The server owns the id and timestamp; the event carries
// no sender name, subscribers resolve it themselves.
func (s *Server) HandleCreateMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	authCtx, err := s.authenticateRequest(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if !s.postLimiter.Allow(authCtx.UserID) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	var req createMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.RoomID == "" {
		writeError(w, http.StatusBadRequest, errors.New("room_id required"))
		return
	}
	if req.Content == "" && req.AssetRef == "" {
		writeError(w, http.StatusBadRequest, errors.New("message needs content or an attachment"))
		return
	}
	member, err := s.store.IsMember(r.Context(), req.RoomID, authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !member {
		http.Error(w, "not a member of this room", http.StatusForbidden)
		return
	}

	event := engine.RawInsert{
		ID:       uuid.NewString(),
		RoomID:   req.RoomID,
		SenderID: authCtx.UserID,
		Content:  req.Content,
		AssetRef: req.AssetRef,
		SentAt:   time.Now().UnixMilli(),
	}
	row := storage.MessageRow{
		ID:       event.ID,
		RoomID:   event.RoomID,
		SenderID: event.SenderID,
		Content:  event.Content,
		AssetRef: event.AssetRef,
		SentAt:   event.SentAt,
	}
	if err := s.store.InsertMessage(r.Context(), row); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.IncMessage()

	if encoded, err := json.Marshal(event); err == nil {
		s.hub.Broadcast(event.RoomID, encoded)
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": event.ID})
}

// HandleRoomLive reports whether a room currently has live subscribers.
func (s *Server) HandleRoomLive(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}
	if s.hub.Exists(room) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	http.Error(w, "not found", http.StatusNotFound)
}

func decodeJSON(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
