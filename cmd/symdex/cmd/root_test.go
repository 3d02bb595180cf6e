package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/symdex/internal/config"
	symerrors "github.com/Aman-CERP/symdex/internal/errors"
)

const testSnapshot = `{"Modules":[{"Name":"Game.Core","ModuleFilePath":"/bin/Game.Core.dll","Types":[
  {"Name":"Entity","FullName":"Game.Core.Entity"},
  {"Name":"Player","FullName":"Game.Core.Player","BaseType":"Game.Core.Entity",
   "Fields":[{"Name":"health","FullName":"Game.Core.Player.health"}]},
  {"Name":"Enemy","FullName":"Game.Core.Enemy","SourceFilePath":"src/Enemy.cs",
   "Methods":[{"Name":"Chase","FullName":"Game.Core.Enemy.Chase","Signature":"void Chase(Game.Core.Player)"}]}
]}]}`

// isolateHome points every per-user path at a temp directory.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, name := range []string{
		"SYMDEX_HOST", "SYMDEX_PORT", "SYMDEX_SNAPSHOT", "SYMDEX_LOG_LEVEL", "SYMDEX_WATCH",
		"LLM_AUTOMATION_HOST", "LLM_AUTOMATION_PORT",
	} {
		t.Setenv(name, "")
	}
	return home
}

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modules.json")
	require.NoError(t, os.WriteFile(path, []byte(testSnapshot), 0o644))
	return path
}

// runRoot executes a fresh root command and returns its stdout.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runRootContext(context.Background(), args...)
}

func runRootContext(ctx context.Context, args ...string) (string, error) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make(map[string]bool)
	for _, sc := range cmd.Commands() {
		names[sc.Name()] = true
	}
	for _, want := range []string{"serve", "search", "lookup", "refs", "paths", "status", "stop", "config", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	cmd := NewRootCmd()

	debug := cmd.PersistentFlags().Lookup("debug")
	require.NotNil(t, debug)
	assert.Equal(t, "false", debug.DefValue)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestRootCmd_VersionFlag(t *testing.T) {
	isolateHome(t)

	out, err := runRoot(t, "--version")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "symdex version "))
}

func TestRootCmd_InvalidConfigFails(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := runRoot(t, "--config", path, "search", "x", "--snapshot", writeSnapshot(t))

	require.Error(t, err)
	assert.Equal(t, symerrors.CategoryConfig, symerrors.GetCategory(err))
}

func TestRootCmd_ConfigSkipsLoading(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := runRoot(t, "--config", path, "config", "path")

	assert.NoError(t, err)
}

func TestSkipsConfig_InheritsFromParent(t *testing.T) {
	parent := &cobra.Command{Use: "parent", Annotations: map[string]string{"skip-config": "true"}}
	child := &cobra.Command{Use: "child"}
	parent.AddCommand(child)

	assert.True(t, skipsConfig(child))
	assert.False(t, skipsConfig(&cobra.Command{Use: "plain"}))
}

func TestReportError(t *testing.T) {
	err := symerrors.ValidationError("empty identifier", nil).WithSuggestion("pass a type name")

	t.Run("text", func(t *testing.T) {
		cmd := newLookupCmd(&rootOptions{})
		var buf bytes.Buffer

		reportError(&buf, cmd, err)

		assert.Contains(t, buf.String(), "empty identifier")
		assert.Contains(t, buf.String(), "pass a type name")
	})

	t.Run("json", func(t *testing.T) {
		cmd := newLookupCmd(&rootOptions{})
		require.NoError(t, cmd.Flags().Set("format", "json"))
		var buf bytes.Buffer

		reportError(&buf, cmd, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, symerrors.ErrCodeInvalidInput, got["code"])
		assert.Equal(t, "VALIDATION", got["category"])
	})

	t.Run("nil command", func(t *testing.T) {
		var buf bytes.Buffer
		reportError(&buf, nil, err)
		assert.Contains(t, buf.String(), "empty identifier")
	})
}

func TestServesMCP(t *testing.T) {
	root := NewRootCmd()
	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	cfg := config.NewConfig()

	assert.False(t, servesMCP(serve, cfg))

	cfg.Server.MCP = true
	assert.True(t, servesMCP(serve, cfg))

	require.NoError(t, serve.Flags().Set("mcp", "false"))
	assert.False(t, servesMCP(serve, cfg), "flag overrides config")

	search, _, err := root.Find([]string{"search"})
	require.NoError(t, err)
	assert.False(t, servesMCP(search, cfg))
}
