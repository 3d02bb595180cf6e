package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.symdex/logs, or a directory under the system
// temp dir when the home directory is unknown.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".symdex", "logs")
	}
	return filepath.Join(home, ".symdex", "logs")
}

// DefaultLogPath returns the server log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}
