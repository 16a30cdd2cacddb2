package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"liveroom/internal/engine"
)

// Stream implements engine.LiveInsertBoundary over a websocket. Each
// Subscribe call dials its own connection; closing the context releases it.
type Stream struct {
	baseURL string
	token   string
	logf    func(format string, args ...interface{})
}

func NewStream(baseURL, token string, logf func(string, ...interface{})) *Stream {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Stream{baseURL: baseURL, token: token, logf: logf}
}

// Subscribe dials the room-scoped subscription endpoint. The returned
// channel carries raw insert events exactly as the server pushes them and
// is closed when the connection drops or ctx is cancelled.
func (s *Stream) Subscribe(ctx context.Context, roomID string) (<-chan engine.RawInsert, error) {
	wsURL, err := subscribeURL(s.baseURL, roomID)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}

	events := make(chan engine.RawInsert, 64)

	// Cancellation closes the socket, which unblocks the read loop.
	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	go func() {
		defer close(events)
		for {
			msgType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			var ev engine.RawInsert
			if err := json.Unmarshal(payload, &ev); err != nil {
				s.logf("drop malformed insert event: %v", err)
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// subscribeURL converts the http(s) API base into the ws(s) subscription
// endpoint for one room.
func subscribeURL(base, roomID string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
		// already a websocket base
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = "/subscribe"
	query := parsed.Query()
	query.Set("room", roomID)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
