package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/symdex/internal/corpus"
	"github.com/Aman-CERP/symdex/internal/keywords"
	"github.com/Aman-CERP/symdex/internal/search"
	"github.com/Aman-CERP/symdex/internal/telemetry"
	"github.com/Aman-CERP/symdex/pkg/version"
)

// Tool names.
const (
	ToolBroadSearch       = "broad_search"
	ToolResolveType       = "resolve_type"
	ToolFindReferences    = "find_type_references"
	ToolBuildKeywordPaths = "build_keyword_paths"
	ToolCorpusStatus      = "corpus_status"
)

// Searcher answers queries against the current corpus. *search.Searcher
// implements it.
type Searcher interface {
	Corpus() *corpus.Corpus
	BroadSearch(pattern string, opts search.BroadSearchOptions) ([]search.SearchHit, error)
	ResolveClear(identifier string) search.Resolution
	FindTypeReferences(identifier string, maxResults int) (*search.ReferenceResult, error)
}

// MetricsSource supplies the query_metrics resource.
type MetricsSource interface {
	Snapshot() *telemetry.QueryMetricsSnapshot
}

// Server is the MCP server for symdex. It exposes the corpus queries as
// tools to AI clients.
type Server struct {
	mcp      *mcp.Server
	searcher Searcher
	metrics  MetricsSource
	logger   *slog.Logger

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var toolInfos = []ToolInfo{
	{
		Name:        ToolBroadSearch,
		Description: "Regex search over every module name, type name and full name, and member name, full name, and signature in the loaded snapshot. Case-insensitive. Use exclude to skip noisy modules.",
	},
	{
		Name:        ToolResolveType,
		Description: "Resolve a short or fully qualified type name to its module, assembly, and source file. Reports ambiguity with every candidate and offers near-miss suggestions when nothing matches.",
	},
	{
		Name:        ToolFindReferences,
		Description: "List types whose base type, interfaces, fields, properties, or method signatures mention the given type, with the reason for each match.",
	},
	{
		Name:        ToolBuildKeywordPaths,
		Description: "Turn a keyword tree or a flat keyword list into search phrases rooted at the most specific root keyword.",
	},
	{
		Name:        ToolCorpusStatus,
		Description: "Report whether a snapshot is loaded, where it came from, and how many modules, types, and members it holds.",
	},
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics enables the query_metrics resource.
func WithMetrics(m MetricsSource) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new MCP server over searcher.
func NewServer(searcher Searcher, opts ...Option) (*Server, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}

	s := &Server{
		searcher: searcher,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "symdex",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	if s.metrics != nil {
		s.registerQueryMetricsResource()
	}
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolBroadSearch, Description: toolInfos[0].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in BroadSearchInput) (*mcp.CallToolResult, SearchOutput, error) {
			out, err := s.broadSearch(ctx, in)
			return nil, out, mapToolError(err)
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolResolveType, Description: toolInfos[1].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in IdentifierInput) (*mcp.CallToolResult, ResolveOutput, error) {
			out, err := s.resolveType(ctx, in)
			return nil, out, mapToolError(err)
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolFindReferences, Description: toolInfos[2].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in ReferencesInput) (*mcp.CallToolResult, SearchOutput, error) {
			out, err := s.findReferences(ctx, in)
			return nil, out, mapToolError(err)
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolBuildKeywordPaths, Description: toolInfos[3].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in KeywordPathsInput) (*mcp.CallToolResult, KeywordPathsOutput, error) {
			out, err := s.buildKeywordPaths(ctx, in)
			return nil, out, mapToolError(err)
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolCorpusStatus, Description: toolInfos[4].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in CorpusStatusInput) (*mcp.CallToolResult, CorpusStatusOutput, error) {
			out, err := s.corpusStatus(ctx, in)
			return nil, out, mapToolError(err)
		})

	s.logger.Debug("MCP tools registered", slog.Int("count", len(toolInfos)))
}

// mapToolError keeps a nil error nil; a typed nil *MCPError would not be.
func mapToolError(err error) error {
	if err == nil {
		return nil
	}
	return MapError(err)
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(toolInfos))
	copy(out, toolInfos)
	return out
}

// CallTool invokes a tool by name with JSON-style arguments, bypassing the
// transport.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolBroadSearch:
		var in BroadSearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.broadSearch(ctx, in)
	case ToolResolveType:
		var in IdentifierInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.resolveType(ctx, in)
	case ToolFindReferences:
		var in ReferencesInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.findReferences(ctx, in)
	case ToolBuildKeywordPaths:
		var in KeywordPathsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.buildKeywordPaths(ctx, in)
	case ToolCorpusStatus:
		return s.corpusStatus(ctx, CorpusStatusInput{})
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, dst any) error {
	if len(args) == 0 {
		return nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (s *Server) broadSearch(ctx context.Context, in BroadSearchInput) (SearchOutput, error) {
	if err := ctx.Err(); err != nil {
		return SearchOutput{}, MapError(err)
	}
	if in.Pattern == "" {
		return SearchOutput{}, NewInvalidParamsError("pattern parameter is required")
	}

	start := time.Now()
	hits, err := s.searcher.BroadSearch(in.Pattern, search.BroadSearchOptions{
		MaxResults:     in.MaxResults,
		ExcludeModules: in.Exclude,
	})
	if err != nil {
		s.logFailure(ToolBroadSearch, in.Pattern, err)
		return SearchOutput{}, MapError(err)
	}
	s.logCall(ToolBroadSearch, in.Pattern, len(hits), start)
	return SearchOutput{Hits: ToHitOutputs(hits)}, nil
}

func (s *Server) resolveType(ctx context.Context, in IdentifierInput) (ResolveOutput, error) {
	if err := ctx.Err(); err != nil {
		return ResolveOutput{}, MapError(err)
	}

	start := time.Now()
	res := s.searcher.ResolveClear(in.Identifier)
	if res.Status == search.StatusBadRequest {
		return ResolveOutput{}, NewInvalidParamsError(res.Error)
	}
	s.logCall(ToolResolveType, res.Identifier, len(res.Candidates), start)
	return ToResolveOutput(res), nil
}

func (s *Server) findReferences(ctx context.Context, in ReferencesInput) (SearchOutput, error) {
	if err := ctx.Err(); err != nil {
		return SearchOutput{}, MapError(err)
	}

	start := time.Now()
	res, err := s.searcher.FindTypeReferences(in.Identifier, in.MaxResults)
	if err != nil {
		s.logFailure(ToolFindReferences, in.Identifier, err)
		return SearchOutput{}, MapError(err)
	}
	s.logCall(ToolFindReferences, res.Identifier, len(res.Hits), start)
	return SearchOutput{Identifier: res.Identifier, Hits: ToHitOutputs(res.Hits)}, nil
}

func (s *Server) buildKeywordPaths(_ context.Context, in KeywordPathsInput) (KeywordPathsOutput, error) {
	tree := make([]keywords.KeywordNode, 0, len(in.Tree))
	for _, n := range in.Tree {
		node := keywords.Node(n.Keyword, n.Parent)
		node.Layer = n.Layer
		tree = append(tree, node)
	}
	paths := keywords.BuildPaths(tree, in.Keywords)
	if paths == nil {
		paths = []string{}
	}
	return KeywordPathsOutput{Paths: paths}, nil
}

func (s *Server) corpusStatus(_ context.Context, _ CorpusStatusInput) (CorpusStatusOutput, error) {
	return ToCorpusStatusOutput(s.searcher.Corpus()), nil
}

func (s *Server) logCall(tool, query string, hits int, start time.Time) {
	s.logger.Info("mcp tool call",
		slog.String("request_id", uuid.NewString()[:8]),
		slog.String("tool", tool),
		slog.String("query", query),
		slog.Int("hits", hits),
		slog.Duration("duration", time.Since(start)))
}

func (s *Server) logFailure(tool, query string, err error) {
	s.logger.Warn("mcp tool failed",
		slog.String("tool", tool),
		slog.String("query", query),
		slog.String("error", err.Error()))
}

// Connect serves a single session over t. It is used with in-memory
// transports.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}

// Serve starts the server with the specified transport. Only stdio is
// supported. Cancellation of ctx is a clean shutdown and returns nil.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
