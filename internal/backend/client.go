// Package backend implements the engine's collaborator boundaries against
// the liveroom HTTP/WebSocket API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"

	"liveroom/internal/engine"
)

const httpTimeout = 5 * time.Second

// ErrUnauthorized is returned when the server rejects the session token.
var ErrUnauthorized = errors.New("unauthorized")

// Client is a handle to the backend REST API. It is passed explicitly into
// every component that needs it; nothing module-level.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: httpTimeout},
	}
}

// SetToken swaps the bearer token after login.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the current bearer token, empty when logged out.
func (c *Client) Token() string { return c.token }

type LoginResult struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Room struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedBy string `json:"created_by"`
	Members   int    `json:"members"`
}

type meResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type profileResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type roomListResponse struct {
	Rooms []Room `json:"rooms"`
}

type historyResponse struct {
	Messages []engine.HistoryRow `json:"messages"`
}

type uploadResponse struct {
	Ref string `json:"ref"`
}

func (c *Client) Signup(ctx context.Context, username, password string) error {
	payload := map[string]string{"username": username, "password": password}
	return c.doJSON(ctx, http.MethodPost, "/signup", payload, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	payload := map[string]string{"username": username, "password": password}
	var resp LoginResult
	if err := c.doJSON(ctx, http.MethodPost, "/login", payload, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/logout", nil, nil)
}

// CurrentUserID implements engine.AuthBoundary. A missing or expired token
// resolves to the empty id, not an error; transport failures are errors.
func (c *Client) CurrentUserID(ctx context.Context) (string, error) {
	if c.token == "" {
		return "", nil
	}
	var resp meResponse
	if err := c.doJSON(ctx, http.MethodGet, "/me", nil, &resp); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return "", nil
		}
		return "", err
	}
	return resp.UserID, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	var resp roomListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/rooms", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func (c *Client) CreateRoom(ctx context.Context, title string) (*Room, error) {
	var room Room
	if err := c.doJSON(ctx, http.MethodPost, "/rooms", map[string]string{"title": title}, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	return c.doJSON(ctx, http.MethodPost, "/rooms/"+url.PathEscape(roomID)+"/join", nil, nil)
}

// FetchMessages implements engine.HistoryBoundary.
func (c *Client) FetchMessages(ctx context.Context, roomID string) ([]engine.HistoryRow, error) {
	var resp historyResponse
	if err := c.doJSON(ctx, http.MethodGet, "/rooms/"+url.PathEscape(roomID)+"/messages", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// ResolveDisplayName implements engine.ProfileBoundary.
func (c *Client) ResolveDisplayName(ctx context.Context, userID string) (string, error) {
	var resp profileResponse
	if err := c.doJSON(ctx, http.MethodGet, "/profiles/"+url.PathEscape(userID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Username, nil
}

// CreateMessage implements engine.PersistenceBoundary. The server assigns
// the id and timestamp; the created message comes back only through the
// live-insert stream.
func (c *Client) CreateMessage(ctx context.Context, msg engine.NewMessage) error {
	payload := map[string]string{
		"room_id":   msg.RoomID,
		"content":   msg.Content,
		"asset_ref": msg.AssetRef,
	}
	return c.doJSON(ctx, http.MethodPost, "/messages", payload, nil)
}

// UploadAsset posts a local file and returns the asset ref to attach to a
// draft.
func (c *Client) UploadAsset(ctx context.Context, roomID, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("room_id", roomID); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	// Uploads get a longer budget than the JSON calls.
	httpClient := &http.Client{Timeout: 2 * time.Minute}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", err
	}
	var uploaded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", err
	}
	return uploaded.Ref, nil
}

// RoomTitles is a convenience for menu rendering.
func RoomTitles(rooms []Room) []string {
	return lo.Map(rooms, func(r Room, _ int) string {
		if r.Title == "" {
			return r.ID
		}
		return r.Title
	})
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, readError(resp.Body))
	}
	return nil
}

func readError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return "request failed"
	}
	var parsed map[string]string
	if err := json.Unmarshal(data, &parsed); err == nil {
		if msg, ok := parsed["error"]; ok {
			return msg
		}
	}
	return strings.TrimSpace(string(data))
}
