package daemon

import (
	"encoding/json"
	"strings"

	"github.com/Aman-CERP/symdex/internal/corpus"
	"github.com/Aman-CERP/symdex/internal/errors"
	"github.com/Aman-CERP/symdex/internal/keywords"
	"github.com/Aman-CERP/symdex/internal/telemetry"
)

// JSON-RPC 2.0 method names.
const (
	MethodPing         = "ping"
	MethodStatus       = "status"
	MethodBroadSearch  = "search.broad"
	MethodResolve      = "lookup.clear"
	MethodReferences   = "search.references"
	MethodKeywordPaths = "keywords.paths"
)

// Standard JSON-RPC 2.0 error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// ErrCodeSearchFailed is returned for query failures that are not caused
// by the request parameters.
const ErrCodeSearchFailed = -32002

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Error represents a JSON-RPC 2.0 error. Data carries the symdex error
// code when one is known.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData is the structured part of an error response.
type ErrorData struct {
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// NewSuccessResponse creates a successful response.
func NewSuccessResponse(id json.RawMessage, result any) Response {
	data, err := json.Marshal(result)
	if err != nil {
		return NewErrorResponse(id, ErrCodeInternalError, "failed to encode result")
	}
	return Response{
		JSONRPC: "2.0",
		Result:  data,
		ID:      nullID(id),
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id json.RawMessage, code int, message string) Response {
	return Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
		},
		ID: nullID(id),
	}
}

// ErrorResponseFor maps err onto a JSON-RPC error. Validation errors
// (invalid regex, empty identifier) become -32602.
func ErrorResponseFor(id json.RawMessage, err error) Response {
	code := ErrCodeSearchFailed
	if errors.IsValidation(err) {
		code = ErrCodeInvalidParams
	}

	se, ok := err.(*errors.SymdexError)
	if !ok {
		return NewErrorResponse(id, code, err.Error())
	}
	resp := NewErrorResponse(id, code, se.Message)
	resp.Error.Data = &ErrorData{Code: se.Code, Details: se.Details}
	return resp
}

func nullID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// BroadSearchParams are the parameters for search.broad.
type BroadSearchParams struct {
	// Pattern is a case-insensitive regular expression (required).
	Pattern string `json:"pattern"`

	// MaxResults caps the hits; <=0 means the server maximum.
	MaxResults int `json:"max_results,omitempty"`

	// Exclude lists module-name substrings to skip.
	Exclude []string `json:"exclude,omitempty"`
}

// Validate checks that required fields are present.
func (p *BroadSearchParams) Validate() error {
	if p.Pattern == "" {
		return errors.New(errors.ErrCodeQueryEmpty, "missing 'pattern' parameter", nil)
	}
	return nil
}

// ResolveParams are the parameters for lookup.clear.
type ResolveParams struct {
	Identifier string `json:"identifier"`
}

// ReferencesParams are the parameters for search.references.
type ReferencesParams struct {
	Identifier string `json:"identifier"`
	MaxResults int    `json:"max_results,omitempty"`
}

// Validate checks that required fields are present.
func (p *ReferencesParams) Validate() error {
	if strings.TrimSpace(p.Identifier) == "" {
		return errors.ValidationError("missing 'identifier' parameter", nil)
	}
	return nil
}

// KeywordPathsParams are the parameters for keywords.paths.
type KeywordPathsParams struct {
	Keywords []string               `json:"keywords,omitempty"`
	Tree     []keywords.KeywordNode `json:"tree,omitempty"`
}

// KeywordPathsResult is the result of keywords.paths.
type KeywordPathsResult struct {
	Paths []string `json:"paths"`
}

// StatusResult contains server status information.
type StatusResult struct {
	Running bool                            `json:"running"`
	PID     int                             `json:"pid"`
	Uptime  string                          `json:"uptime"`
	Corpus  corpus.Stats                    `json:"corpus"`
	Metrics *telemetry.QueryMetricsSnapshot `json:"metrics,omitempty"`
}

// PingResult is the response to a ping request.
type PingResult struct {
	Pong bool `json:"pong"`
}
