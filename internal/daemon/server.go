package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/Aman-CERP/symdex/internal/corpus"
	"github.com/Aman-CERP/symdex/internal/errors"
	"github.com/Aman-CERP/symdex/internal/keywords"
	"github.com/Aman-CERP/symdex/internal/search"
	"github.com/Aman-CERP/symdex/internal/telemetry"
)

// Handler answers queries against the current corpus. *search.Searcher
// implements it.
type Handler interface {
	Corpus() *corpus.Corpus
	BroadSearch(pattern string, opts search.BroadSearchOptions) ([]search.SearchHit, error)
	ResolveClear(identifier string) search.Resolution
	FindTypeReferences(identifier string, maxResults int) (*search.ReferenceResult, error)
}

// MetricsSource supplies the metrics reported by status.
type MetricsSource interface {
	Snapshot() *telemetry.QueryMetricsSnapshot
}

// connDeadline bounds a single request/response exchange.
const connDeadline = 30 * time.Second

// Server listens on a Unix socket and answers one JSON-RPC request per
// connection.
type Server struct {
	socketPath string
	listener   net.Listener
	handler    Handler
	metrics    MetricsSource
	pidFile    *PIDFile
	started    time.Time

	mu       sync.Mutex
	shutdown bool
	ready    chan struct{}
	wg       sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMetrics reports m in status responses.
func WithMetrics(m MetricsSource) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithPIDFile makes ListenAndServe hold pf for the server's lifetime.
func WithPIDFile(pf *PIDFile) ServerOption {
	return func(s *Server) {
		s.pidFile = pf
	}
}

// NewServer creates a server for socketPath backed by h.
func NewServer(socketPath string, h Handler, opts ...ServerOption) (*Server, error) {
	if socketPath == "" {
		return nil, fmt.Errorf("socket path cannot be empty")
	}
	if h == nil {
		return nil, fmt.Errorf("handler is required")
	}
	s := &Server{
		socketPath: socketPath,
		handler:    h,
		ready:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ready is closed once the socket is accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// ListenAndServe starts the server and blocks until ctx is cancelled. It
// returns ctx.Err() after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.pidFile != nil {
		if err := s.pidFile.Acquire(); err != nil {
			return err
		}
		defer func() { _ = s.pidFile.Release() }()
	}

	// The lock is held (or not used), so any socket file is stale.
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return errors.NetworkError(fmt.Sprintf("failed to listen on %s", s.socketPath), err)
	}
	s.mu.Lock()
	s.listener = listener
	s.started = time.Now()
	s.mu.Unlock()
	close(s.ready)

	defer func() {
		_ = listener.Close()
		_ = os.Remove(s.socketPath)
	}()

	slog.Info("daemon listening", slog.String("socket", s.socketPath))

	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		_ = listener.Close()
	})
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()
			if shutdown {
				break
			}
			slog.Error("accept error", slog.String("error", err.Error()))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}

	s.wg.Wait()
	return ctx.Err()
}

// handleConnection processes a single client connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(connDeadline)); err != nil {
		slog.Warn("failed to set connection deadline", slog.String("error", err.Error()))
	}

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var req Request
	if err := decoder.Decode(&req); err != nil {
		_ = encoder.Encode(NewErrorResponse(nil, ErrCodeParseError, "failed to parse request"))
		return
	}

	start := time.Now()
	resp := s.HandleRequest(req)

	attrs := []any{
		slog.String("method", req.Method),
		slog.Duration("duration", time.Since(start)),
	}
	if resp.Error != nil {
		attrs = append(attrs, slog.Int("rpc_code", resp.Error.Code), slog.String("error", resp.Error.Message))
	}
	slog.Debug("rpc request", attrs...)

	_ = encoder.Encode(resp)
}

// HandleRequest dispatches one decoded request.
func (s *Server) HandleRequest(req Request) Response {
	if req.JSONRPC != "2.0" {
		return NewErrorResponse(req.ID, ErrCodeInvalidRequest, "jsonrpc must be \"2.0\"")
	}

	switch req.Method {
	case MethodPing:
		return NewSuccessResponse(req.ID, PingResult{Pong: true})

	case MethodStatus:
		return NewSuccessResponse(req.ID, s.Status())

	case MethodBroadSearch:
		var p BroadSearchParams
		if resp, ok := decodeParams(req, &p); !ok {
			return resp
		}
		if err := p.Validate(); err != nil {
			return ErrorResponseFor(req.ID, err)
		}
		hits, err := s.handler.BroadSearch(p.Pattern, search.BroadSearchOptions{
			MaxResults:     p.MaxResults,
			ExcludeModules: p.Exclude,
		})
		if err != nil {
			return ErrorResponseFor(req.ID, err)
		}
		return NewSuccessResponse(req.ID, hits)

	case MethodResolve:
		var p ResolveParams
		if resp, ok := decodeParams(req, &p); !ok {
			return resp
		}
		res := s.handler.ResolveClear(p.Identifier)
		if res.Status == search.StatusBadRequest {
			return ErrorResponseFor(req.ID, errors.ValidationError(res.Error, nil))
		}
		return NewSuccessResponse(req.ID, res)

	case MethodReferences:
		var p ReferencesParams
		if resp, ok := decodeParams(req, &p); !ok {
			return resp
		}
		if err := p.Validate(); err != nil {
			return ErrorResponseFor(req.ID, err)
		}
		result, err := s.handler.FindTypeReferences(p.Identifier, p.MaxResults)
		if err != nil {
			return ErrorResponseFor(req.ID, err)
		}
		return NewSuccessResponse(req.ID, result)

	case MethodKeywordPaths:
		var p KeywordPathsParams
		if resp, ok := decodeParams(req, &p); !ok {
			return resp
		}
		paths := keywords.BuildPaths(p.Tree, p.Keywords)
		if paths == nil {
			paths = []string{}
		}
		return NewSuccessResponse(req.ID, KeywordPathsResult{Paths: paths})

	default:
		return NewErrorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

// decodeParams unmarshals req.Params into dst. Absent params leave dst at
// its zero value.
func decodeParams(req Request, dst any) (Response, bool) {
	if len(req.Params) == 0 || string(req.Params) == "null" {
		return Response{}, true
	}
	if err := json.Unmarshal(req.Params, dst); err != nil {
		return NewErrorResponse(req.ID, ErrCodeInvalidParams, "failed to decode params: "+err.Error()), false
	}
	return Response{}, true
}

// Status returns the current server status.
func (s *Server) Status() StatusResult {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	status := StatusResult{
		Running: true,
		PID:     os.Getpid(),
		Corpus:  s.handler.Corpus().Stats(),
	}
	if !started.IsZero() {
		status.Uptime = time.Since(started).Round(time.Second).String()
	}
	if s.metrics != nil {
		status.Metrics = s.metrics.Snapshot()
	}
	return status
}

// Close stops accepting connections.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
