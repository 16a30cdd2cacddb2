package backend

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// SessionFile is the cached login persisted between client runs.
type SessionFile struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// LoadSession reads a cached session from disk.
func LoadSession(path string) (*SessionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var session SessionFile
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	if session.Token == "" || session.UserID == "" {
		return nil, errors.New("session file incomplete")
	}
	return &session, nil
}

// SaveSession writes the session atomically with user-only permissions.
func SaveSession(path string, session SessionFile) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// DeleteSession removes the cached session if present.
func DeleteSession(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
