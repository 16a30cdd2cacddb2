package internal

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"liveroom/internal/storage"
)

const defaultTokenTTL = 30 * 24 * time.Hour

var errUnauthorized = errors.New("unauthorized")

// Server owns the HTTP API and the live fan-out hub. Handlers are plain
// methods registered on a mux by the app package.
type Server struct {
	store       *storage.Store
	hub         *Hub
	metrics     *Metrics
	presence    *PresenceTracker
	authLimiter *RateLimiter
	postLimiter *RateLimiter
	assets      *AssetHandler
	tokenTTL    time.Duration
}

// NewServer builds a server with default upload settings.
func NewServer(store *storage.Store) *Server {
	return NewServerWithConfig(store, "uploads", 10*1024*1024)
}

// NewServerWithConfig builds a server with an explicit asset directory and
// size cap.
func NewServerWithConfig(store *storage.Store, assetDir string, maxAssetSize int64) *Server {
	s := &Server{
		store:       store,
		hub:         NewHub(),
		metrics:     NewMetrics(),
		presence:    NewPresenceTracker(),
		authLimiter: NewRateLimiter(10, time.Minute),
		postLimiter: NewRateLimiter(30, 10*time.Second),
		tokenTTL:    defaultTokenTTL,
	}
	s.assets = NewAssetHandler(s, assetDir, maxAssetSize)
	return s
}

// MetricsHandler exposes the counters as JSON.
func (s *Server) MetricsHandler() http.Handler {
	return s.metrics
}

// Assets returns the attachment upload/download handler.
func (s *Server) Assets() *AssetHandler {
	return s.assets
}

type authContext struct {
	Token    string
	UserID   string
	Username string
}

// authenticateRequest resolves the bearer token against the sessions table.
// Expired tokens are treated as unauthorized, not as an internal error.
func (s *Server) authenticateRequest(r *http.Request) (*authContext, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, errUnauthorized
	}
	session, err := s.store.GetSession(r.Context(), token)
	if err != nil {
		return nil, err
	}
	if session == nil || time.Now().After(session.ExpiresAt) {
		return nil, errUnauthorized
	}
	user, err := s.store.GetUserByID(r.Context(), session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errUnauthorized
	}
	return &authContext{Token: token, UserID: user.ID, Username: user.Username}, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	// Websocket clients that cannot set headers may pass the token in the
	// query string instead.
	return r.URL.Query().Get("token")
}

func (s *Server) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, errUnauthorized) {
		status = http.StatusUnauthorized
	}
	http.Error(w, http.StatusText(status), status)
}
