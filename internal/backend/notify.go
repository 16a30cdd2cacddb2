package backend

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

const notifyTimeout = 2 * time.Second

// DesktopNotifier implements engine.Notifier with the host's notification
// command: notify-send on Linux, osascript on macOS. When neither is
// available it falls back to the terminal bell. Permission maps to an
// explicit opt-in flag rather than a browser-style prompt.
type DesktopNotifier struct {
	enabled bool
	command string
}

func NewDesktopNotifier(enabled bool) *DesktopNotifier {
	return &DesktopNotifier{enabled: enabled, command: detectNotifyCommand()}
}

func (n *DesktopNotifier) PermissionGranted() bool {
	return n.enabled
}

func (n *DesktopNotifier) Raise(title, body string) error {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	switch n.command {
	case "notify-send":
		return exec.CommandContext(ctx, "notify-send", title, body).Run()
	case "osascript":
		script := fmt.Sprintf("display notification %s with title %s",
			appleScriptQuote(body), appleScriptQuote(title))
		return exec.CommandContext(ctx, "osascript", "-e", script).Run()
	default:
		_, err := fmt.Fprint(os.Stderr, "\a")
		return err
	}
}

func detectNotifyCommand() string {
	switch runtime.GOOS {
	case "linux":
		if _, err := exec.LookPath("notify-send"); err == nil {
			return "notify-send"
		}
	case "darwin":
		if _, err := exec.LookPath("osascript"); err == nil {
			return "osascript"
		}
	}
	return ""
}

func appleScriptQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
