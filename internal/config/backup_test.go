package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupFile_MissingIsNoop(t *testing.T) {
	backup, err := BackupFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Empty(t, backup)
}

func TestBackupFile_CopiesAndPrunes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

	var made []string
	for i := 0; i < MaxBackups+2; i++ {
		b, err := BackupFile(path)
		require.NoError(t, err)
		made = append(made, b)
		time.Sleep(2 * time.Millisecond)
	}

	data, err := os.ReadFile(made[len(made)-1])
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))

	backups, err := ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, MaxBackups)
	assert.Equal(t, made[len(made)-1], backups[0], "newest first")
	assert.NotContains(t, backups, made[0])
}
