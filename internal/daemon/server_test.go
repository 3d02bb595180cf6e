package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/symdex/internal/corpus"
	"github.com/Aman-CERP/symdex/internal/errors"
	"github.com/Aman-CERP/symdex/internal/keywords"
	"github.com/Aman-CERP/symdex/internal/search"
	"github.com/Aman-CERP/symdex/internal/telemetry"
)

const testSnapshot = `{"Modules":[{"Name":"Game.Core","ModuleFilePath":"/bin/Game.Core.dll","Types":[
  {"Name":"Entity","FullName":"Game.Core.Entity"},
  {"Name":"Player","FullName":"Game.Core.Player","BaseType":"Game.Core.Entity",
   "Fields":[{"Name":"health","FullName":"Game.Core.Player.health"}]},
  {"Name":"Enemy","FullName":"Game.Core.Enemy","SourceFilePath":"src/Enemy.cs",
   "Methods":[{"Name":"Chase","FullName":"Game.Core.Enemy.Chase","Signature":"void Chase(Game.Core.Player)"}]}
]}]}`

// serverTestSocketPath creates a unique socket path short enough for
// sun_path limits.
func serverTestSocketPath(t *testing.T) string {
	t.Helper()
	socketPath := filepath.Join("/tmp", fmt.Sprintf("symdex-server-test-%d.sock", time.Now().UnixNano()))
	t.Cleanup(func() { _ = os.Remove(socketPath) })
	return socketPath
}

func newTestSearcher(t *testing.T) *search.Searcher {
	t.Helper()
	c, err := corpus.Load([]byte(testSnapshot))
	require.NoError(t, err)
	return search.NewSearcher(corpus.NewHolder(c))
}

// startServer runs a server until the test ends and returns a client for it.
func startServer(t *testing.T, opts ...ServerOption) (*Server, *Client) {
	t.Helper()
	socketPath := serverTestSocketPath(t)

	srv, err := NewServer(socketPath, newTestSearcher(t), opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		cancel()
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("server did not start")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})

	client := NewClient(Config{SocketPath: socketPath, Timeout: 2 * time.Second})
	return srv, client
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer("", newTestSearcher(t))
	assert.Error(t, err)

	_, err = NewServer("/tmp/x.sock", nil)
	assert.Error(t, err)
}

func TestServer_ListenAndServe_RemovesSocketOnExit(t *testing.T) {
	socketPath := serverTestSocketPath(t)
	srv, err := NewServer(socketPath, newTestSearcher(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()
	<-srv.Ready()

	_, err = os.Stat(socketPath)
	require.NoError(t, err)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.NoFileExists(t, socketPath)
}

func TestServer_PIDFileLock(t *testing.T) {
	// Given: a server holding the PID lock
	pidPath := filepath.Join(t.TempDir(), "daemon.pid")
	_, _ = startServer(t, WithPIDFile(NewPIDFile(pidPath)))
	assert.FileExists(t, pidPath)

	// When: a second server uses the same PID file
	other, err := NewServer(serverTestSocketPath(t), newTestSearcher(t), WithPIDFile(NewPIDFile(pidPath)))
	require.NoError(t, err)
	err = other.ListenAndServe(context.Background())

	// Then: it refuses to start
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestClient_PingAndStatus(t *testing.T) {
	metrics := telemetry.NewQueryMetrics(nil)
	t.Cleanup(func() { _ = metrics.Close() })
	_, client := startServer(t, WithMetrics(metrics))
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))
	assert.True(t, client.IsRunning())

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, os.Getpid(), status.PID)
	assert.Equal(t, 1, status.Corpus.Modules)
	assert.Equal(t, 3, status.Corpus.Types)
	require.NotNil(t, status.Metrics)
}

func TestClient_BroadSearch(t *testing.T) {
	_, client := startServer(t)

	hits, err := client.BroadSearch(context.Background(), BroadSearchParams{Pattern: "player", MaxResults: 10})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, search.HitType, hits[0].Kind)
	assert.Equal(t, "Game.Core.Player", hits[0].FullName)
}

func TestBroadSearchParams_Validate(t *testing.T) {
	err := (&BroadSearchParams{}).Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeQueryEmpty, errors.GetCode(err))

	assert.NoError(t, (&BroadSearchParams{Pattern: " "}).Validate())
}

func TestClient_BroadSearch_WhitespacePattern(t *testing.T) {
	_, client := startServer(t)

	_, err := client.BroadSearch(context.Background(), BroadSearchParams{Pattern: " "})
	assert.NoError(t, err)
}

func TestClient_BroadSearch_InvalidPattern(t *testing.T) {
	_, client := startServer(t)

	_, err := client.BroadSearch(context.Background(), BroadSearchParams{Pattern: "("})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidPattern, errors.GetCode(err))
	assert.Contains(t, err.Error(), "invalid regex")
}

func TestClient_ResolveClear(t *testing.T) {
	_, client := startServer(t)
	ctx := context.Background()

	res, err := client.ResolveClear(ctx, `"Game.Core.Enemy"`)
	require.NoError(t, err)
	assert.Equal(t, search.StatusOK, res.Status)
	require.NotNil(t, res.Candidate)
	assert.Equal(t, "src/Enemy.cs", res.SourcePath)

	res, err = client.ResolveClear(ctx, "Core")
	require.NoError(t, err)
	assert.Equal(t, search.StatusAmbiguous, res.Status)
	assert.Len(t, res.Candidates, 3)

	_, err = client.ResolveClear(ctx, "  ")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestClient_FindTypeReferences(t *testing.T) {
	_, client := startServer(t)

	result, err := client.FindTypeReferences(context.Background(), ReferencesParams{Identifier: "Player"})
	require.NoError(t, err)
	assert.Equal(t, "Player", result.Identifier)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Game.Core.Enemy", result.Hits[0].FullName)
	assert.Equal(t, search.HitTypeRef, result.Hits[0].Kind)
}

func TestClient_KeywordPaths(t *testing.T) {
	_, client := startServer(t)

	paths, err := client.KeywordPaths(context.Background(), KeywordPathsParams{
		Keywords: []string{"Player", "Health", "AttackSpeed"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Player", "Player Health", "Player AttackSpeed"}, paths)

	paths, err = client.KeywordPaths(context.Background(), KeywordPathsParams{
		Tree: []keywords.KeywordNode{keywords.Node("Player", ""), keywords.Node("PlayerHealth", "Player")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Player Health"}, paths)
}

func TestClient_NotRunning(t *testing.T) {
	client := NewClient(Config{SocketPath: serverTestSocketPath(t), Timeout: 100 * time.Millisecond})
	client.retry.MaxRetries = 0

	assert.False(t, client.IsRunning())
	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNetworkUnavailable, errors.GetCode(err))
}

func rawCall(t *testing.T, socketPath, payload string) Response {
	t.Helper()
	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(payload + "\n"))
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	return resp
}

func TestServer_ProtocolErrors(t *testing.T) {
	srv, _ := startServer(t)

	tests := []struct {
		name    string
		payload string
		code    int
	}{
		{"parse error", `{not json`, ErrCodeParseError},
		{"wrong version", `{"jsonrpc":"1.0","method":"ping","id":1}`, ErrCodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","method":"nope","id":1}`, ErrCodeMethodNotFound},
		{"bad params", `{"jsonrpc":"2.0","method":"search.broad","params":{"pattern":5},"id":1}`, ErrCodeInvalidParams},
		{"missing pattern", `{"jsonrpc":"2.0","method":"search.broad","params":{},"id":1}`, ErrCodeInvalidParams},
		{"invalid regex", `{"jsonrpc":"2.0","method":"search.broad","params":{"pattern":"["},"id":1}`, ErrCodeInvalidParams},
		{"missing identifier", `{"jsonrpc":"2.0","method":"search.references","id":1}`, ErrCodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := rawCall(t, srv.socketPath, tt.payload)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, "2.0", resp.JSONRPC)
		})
	}
}

func TestServer_EchoesNumericID(t *testing.T) {
	srv, _ := startServer(t)

	resp := rawCall(t, srv.socketPath, `{"jsonrpc":"2.0","method":"ping","id":7}`)
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, `7`, string(resp.ID))
	assert.JSONEq(t, `{"pong":true}`, string(resp.Result))
}

func TestErrorResponseFor(t *testing.T) {
	resp := ErrorResponseFor(json.RawMessage(`1`), errors.InvalidPattern("(", fmt.Errorf("missing closing )")))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "invalid regex: missing closing )", resp.Error.Message)
	assert.Equal(t, errors.ErrCodeInvalidPattern, resp.Error.Data.Code)
	assert.Equal(t, "(", resp.Error.Data.Details["pattern"])

	resp = ErrorResponseFor(nil, fmt.Errorf("boom"))
	assert.Equal(t, ErrCodeSearchFailed, resp.Error.Code)
	assert.Equal(t, "null", string(resp.ID))
}
