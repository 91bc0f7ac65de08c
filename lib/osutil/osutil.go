package osutil

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

// SignalContext returns a context that is canceled once Ctrl+C (or SIGTERM) is received.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// UserStatePath returns `name` inside the per-user state directory for the cli,
// falling back to the working directory when no home directory is available.
func UserStatePath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, "f95api", name)
}
