// Package mcp implements the Model Context Protocol (MCP) server for symdex.
package mcp

import (
	"context"
	"errors"
	"fmt"

	symerrors "github.com/Aman-CERP/symdex/internal/errors"
)

// Custom MCP error codes for symdex.
const (
	// ErrCodeCorpusUnavailable indicates no snapshot could be read.
	ErrCodeCorpusUnavailable = -32001

	// ErrCodeSearchFailed indicates a query failed for a non-input reason.
	ErrCodeSearchFailed = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrMetricsUnavailable indicates telemetry is disabled.
	ErrMetricsUnavailable = errors.New("query metrics not available")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var se *symerrors.SymdexError
	if errors.As(err, &se) {
		return mapSymdexError(se)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{Code: ErrCodeInvalidParams, Message: "Invalid parameters."}
	case errors.Is(err, ErrMetricsUnavailable):
		return &MCPError{Code: ErrCodeInvalidParams, Message: "Query metrics are disabled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func mapSymdexError(se *symerrors.SymdexError) *MCPError {
	message := se.Message
	if se.Suggestion != "" {
		message = fmt.Sprintf("%s %s", se.Message, se.Suggestion)
	}

	switch se.Category {
	case symerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case symerrors.CategoryIO:
		return &MCPError{Code: ErrCodeCorpusUnavailable, Message: message}
	case symerrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case symerrors.CategoryInternal:
		if se.Code == symerrors.ErrCodeSearchFailed {
			return &MCPError{Code: ErrCodeSearchFailed, Message: message}
		}
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
