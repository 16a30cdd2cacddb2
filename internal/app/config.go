package app

import (
	"os"
	"path/filepath"
	"runtime"
)

// ServerConfig defines how the HTTP/WebSocket backend should run.
type ServerConfig struct {
	Addr         string
	DBPath       string
	AssetDir     string
	MaxAssetSize int64
}

// ClientConfig defines the parameters the TUI client needs.
type ClientConfig struct {
	ServerURL   string
	SessionPath string
	Notify      bool
}

// DefaultDBPath returns a per-user data path for the bundled SQLite file.
func DefaultDBPath() string {
	if env := os.Getenv("LIVEROOM_DB_PATH"); env != "" {
		return env
	}
	return filepath.Join(dataDir(), "liveroom.db")
}

// DefaultSessionPath returns where the client caches its login.
func DefaultSessionPath() string {
	if env := os.Getenv("LIVEROOM_SESSION_PATH"); env != "" {
		return env
	}
	return filepath.Join(dataDir(), "session.json")
}

// DefaultAssetDir returns where the server stores uploaded attachments.
func DefaultAssetDir() string {
	if env := os.Getenv("LIVEROOM_ASSET_DIR"); env != "" {
		return env
	}
	return filepath.Join(dataDir(), "assets")
}

func dataDir() string {
	if env := os.Getenv("LIVEROOM_DATA_DIR"); env != "" {
		return env
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "liveroom")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Liveroom")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "Liveroom")
		}
		return filepath.Join(home, ".local", "share", "liveroom")
	}
	return filepath.Join(".", ".liveroom")
}
