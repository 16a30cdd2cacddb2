package app

import (
	"errors"

	intrnl "liveroom/internal"
)

// RunClient launches the Bubble Tea TUI with the provided configuration.
func RunClient(cfg ClientConfig) error {
	if cfg.ServerURL == "" {
		return errors.New("server URL is required")
	}
	if cfg.SessionPath == "" {
		cfg.SessionPath = DefaultSessionPath()
	}
	return intrnl.RunClient(cfg.ServerURL, cfg.SessionPath, cfg.Notify)
}
