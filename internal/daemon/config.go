// Package daemon serves symbol queries over a Unix socket so that CLI
// commands can reuse a corpus loaded by a long-running `symdex serve`
// instead of decoding the snapshot on every invocation.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds configuration for the daemon service.
type Config struct {
	// SocketPath is the Unix domain socket path for IPC.
	// Default: ~/.symdex/daemon.sock
	SocketPath string

	// PIDPath is the file path for storing the server's process ID.
	// Default: ~/.symdex/daemon.pid
	PIDPath string

	// Timeout is the maximum duration for one client request.
	// Default: 10s
	Timeout time.Duration
}

// DefaultDir returns ~/.symdex, or /tmp/.symdex without a home directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".symdex")
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	dir := DefaultDir()
	return Config{
		SocketPath: filepath.Join(dir, "daemon.sock"),
		PIDPath:    filepath.Join(dir, "daemon.pid"),
		Timeout:    10 * time.Second,
	}
}

// WithPaths returns c with non-empty overrides applied.
func (c Config) WithPaths(socketPath, pidPath string) Config {
	if socketPath != "" {
		c.SocketPath = socketPath
	}
	if pidPath != "" {
		c.PIDPath = pidPath
	}
	return c
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket path cannot be empty")
	}
	if c.PIDPath == "" {
		return fmt.Errorf("PID path cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// EnsureDir creates the directories for the socket and PID files.
func (c Config) EnsureDir() error {
	socketDir := filepath.Dir(c.SocketPath)
	if err := os.MkdirAll(socketDir, 0o755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	pidDir := filepath.Dir(c.PIDPath)
	if pidDir != socketDir {
		if err := os.MkdirAll(pidDir, 0o755); err != nil {
			return fmt.Errorf("failed to create PID directory: %w", err)
		}
	}
	return nil
}
