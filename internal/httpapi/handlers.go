package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Aman-CERP/symdex/internal/corpus"
	"github.com/Aman-CERP/symdex/internal/errors"
	"github.com/Aman-CERP/symdex/internal/keywords"
	"github.com/Aman-CERP/symdex/internal/search"
	"github.com/Aman-CERP/symdex/internal/telemetry"
)

const hitCountKey = "hits"

// KeywordPathsRequest is the body of POST /api/keywords/paths.
type KeywordPathsRequest struct {
	Keywords []string               `json:"keywords"`
	Tree     []keywords.KeywordNode `json:"tree"`
}

// KeywordPathsResponse is the reply of POST /api/keywords/paths.
type KeywordPathsResponse struct {
	Paths []string `json:"paths"`
}

// SuggestionRequest is the body of POST /api/keywords/suggestion. Reply is
// the raw model output; Question is used for the fallback keywords.
type SuggestionRequest struct {
	Reply    string `json:"reply"`
	Question string `json:"question"`
}

// StatsResponse is the reply of GET /api/corpus/stats.
type StatsResponse struct {
	corpus.Stats
	ModuleNames []string                        `json:"moduleNames"`
	Metrics     *telemetry.QueryMetricsSnapshot `json:"metrics,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, errorBody{Error: msg, Code: code})
}

// writeError maps validation failures to 400 and everything else to 500.
func writeError(c *gin.Context, err error) {
	msg, code := err.Error(), errors.ErrCodeInternal
	if se, ok := err.(*errors.SymdexError); ok {
		msg, code = se.Message, se.Code
	}
	if errors.IsValidation(err) {
		badRequest(c, code, msg)
		return
	}
	c.JSON(http.StatusInternalServerError, errorBody{Error: msg, Code: code})
}

// queryInt parses an integer query parameter. A missing or non-integer
// value yields 0, which the search layer treats as the maximum.
func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(name)))
	if err != nil {
		return 0
	}
	return n
}

// queryList collects a repeatable, comma-separated query parameter.
func queryList(c *gin.Context, name string) []string {
	var out []string
	for _, v := range c.QueryArray(name) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleBroadSearch(c *gin.Context) {
	pattern := c.Query("pattern")
	if pattern == "" {
		badRequest(c, errors.ErrCodeQueryEmpty, "missing 'pattern' query parameter")
		return
	}

	hits, err := s.searcher.BroadSearch(pattern, search.BroadSearchOptions{
		MaxResults:     queryInt(c, "maxResults"),
		ExcludeModules: queryList(c, "exclude"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(hitCountKey, len(hits))
	c.JSON(http.StatusOK, hits)
}

func (s *Server) handleLookupClear(c *gin.Context) {
	res := s.searcher.ResolveClear(c.Query("identifier"))
	status := http.StatusOK
	if res.Status == search.StatusBadRequest {
		status = http.StatusBadRequest
	}
	n := len(res.Candidates)
	if res.Candidate != nil {
		n = 1
	}
	c.Set(hitCountKey, n)
	c.JSON(status, res)
}

func (s *Server) handleReferences(c *gin.Context) {
	identifier := c.Query("identifier")
	if strings.TrimSpace(identifier) == "" {
		badRequest(c, errors.ErrCodeInvalidInput, "missing 'identifier' query parameter")
		return
	}

	result, err := s.searcher.FindTypeReferences(identifier, queryInt(c, "maxResults"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(hitCountKey, len(result.Hits))
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleKeywordPaths(c *gin.Context) {
	var req KeywordPathsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, errors.ErrCodeInvalidInput, "invalid JSON body: "+err.Error())
		return
	}
	paths := keywords.BuildPaths(req.Tree, req.Keywords)
	if paths == nil {
		paths = []string{}
	}
	c.JSON(http.StatusOK, KeywordPathsResponse{Paths: paths})
}

func (s *Server) handleSuggestion(c *gin.Context) {
	var req SuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, errors.ErrCodeInvalidInput, "invalid JSON body: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, keywords.Interpret(req.Reply, req.Question))
}

func (s *Server) handleCorpusStats(c *gin.Context) {
	cur := s.searcher.Corpus()
	resp := StatsResponse{
		Stats:       cur.Stats(),
		ModuleNames: cur.ModuleNames(),
	}
	if resp.ModuleNames == nil {
		resp.ModuleNames = []string{}
	}
	if s.metrics != nil {
		resp.Metrics = s.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, resp)
}
