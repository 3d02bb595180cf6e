package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/symdex/internal/errors"
)

const sampleSnapshot = `{
  "Modules": [
    {
      "Name": "Game.Core",
      "AssemblyFullName": "Game.Core, Version=1.0.0.0",
      "ModuleFilePath": "/bin/Game.Core.dll",
      "Types": [
        {
          "Name": "Player",
          "FullName": "Game.Core.Player",
          "Namespace": "Game.Core",
          "BaseType": "Game.Core.Entity",
          "SourceFilePath": "src/Player.cs",
          "Fields": [{"Name": "health", "FullName": "Game.Core.Player.health"}],
          "Methods": [{"Name": "Attack", "FullName": "Game.Core.Player.Attack", "Signature": "void Attack(Enemy)"}],
          "Properties": [{"Name": "Level", "FullName": "Game.Core.Player.Level"}],
          "Events": [{"Name": "Died", "FullName": "Game.Core.Player.Died"}]
        },
        "not-an-object",
        {"Name": "Enemy", "FullName": "Game.Core.Enemy"}
      ]
    },
    42,
    {"Name": "Game.UI", "FileName": "Game.UI.dll"}
  ]
}`

func TestLoad_ModulesShape(t *testing.T) {
	c, err := Load([]byte(sampleSnapshot))
	require.NoError(t, err)

	require.Len(t, c.Modules, 2)
	core := c.Modules[0]
	assert.Equal(t, "Game.Core", core.Name)
	assert.Equal(t, "/bin/Game.Core.dll", core.AssemblyPath)
	require.Len(t, core.Types, 2)

	player := core.Types[0]
	assert.Equal(t, "Game.Core.Entity", player.BaseType)
	assert.Equal(t, "src/Player.cs", player.SourcePath)
	assert.Equal(t, KindMethod, player.Methods[0].Kind)
	assert.Equal(t, "void Attack(Enemy)", player.Methods[0].Signature)
	assert.Equal(t, KindEvent, player.Events[0].Kind)

	assert.Equal(t, "Game.UI.dll", c.Modules[1].AssemblyPath)

	stats := c.Stats()
	assert.Equal(t, 2, stats.Modules)
	assert.Equal(t, 2, stats.Types)
	assert.Equal(t, 4, stats.Members)
}

func TestLoad_ProjectWrapper(t *testing.T) {
	c, err := Load([]byte(`{"Project": {"Modules": [{"Name": "A", "AssemblyPath": "a.dll", "FileName": "ignored"}]}}`))
	require.NoError(t, err)
	require.Len(t, c.Modules, 1)
	assert.Equal(t, "a.dll", c.Modules[0].AssemblyPath)
}

func TestLoad_LowercaseKeys(t *testing.T) {
	c, err := Load([]byte(`{"modules": [{"name": " A ", "types": [{"name": "T", "fullName": "N.T"}]}]}`))
	require.NoError(t, err)
	require.Len(t, c.Modules, 1)
	assert.Equal(t, "A", c.Modules[0].Name)
	assert.Equal(t, "N.T", c.Modules[0].Types[0].FullName)
}

func TestLoad_DegradesToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", false},
		{"whitespace", "  \n\t", false},
		{"unexpected shape", `{"unexpected": true}`, true},
		{"malformed", `{"Modules": [`, true},
		{"top-level array", `[1, 2]`, true},
		{"modules not array", `{"Modules": {"Name": "A"}}`, true},
		{"project without modules", `{"Project": {"Name": "x"}}`, true},
		{"project not object", `{"Project": "x"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load([]byte(tt.input))

			require.NotNil(t, c)
			assert.True(t, c.IsEmpty())
			assert.Zero(t, c.Stats().Modules)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeUnrecognizedSnapshot, errors.GetCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_WrongFieldTypesAreAbsent(t *testing.T) {
	c, err := Load([]byte(`{"Modules": [{"Name": 7, "Types": "nope"}]}`))
	require.NoError(t, err)
	require.Len(t, c.Modules, 1)
	assert.Empty(t, c.Modules[0].Name)
	assert.Empty(t, c.Modules[0].Types)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleSnapshot), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, c.Stats().Source)
	assert.Len(t, c.Modules, 2)
}

func TestLoadFile_Missing(t *testing.T) {
	c, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileNotFound, errors.GetCode(err))
	assert.True(t, c.IsEmpty())
}

func TestLoadReader(t *testing.T) {
	c, err := LoadReader(strings.NewReader(`{"Modules": [{"Name": "M"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"M"}, c.ModuleNames())
}

func TestLoadStdin_PipedFile(t *testing.T) {
	// Given: a regular file standing in for piped stdin
	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleSnapshot), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	// When: loading from it
	c, err := LoadStdin(f)

	// Then: it is decoded and tagged as stdin
	require.NoError(t, err)
	assert.Equal(t, "stdin", c.Stats().Source)
	assert.Len(t, c.Modules, 2)
}

func TestLoadStdin_Nil(t *testing.T) {
	c, err := LoadStdin(nil)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}
