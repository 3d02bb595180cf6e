package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/Aman-CERP/symdex/internal/errors"
	"github.com/Aman-CERP/symdex/internal/search"
)

// Client sends requests to a running server.
type Client struct {
	socketPath string
	timeout    time.Duration
	retry      errors.RetryConfig
	requestID  atomic.Uint64
}

// NewClient creates a new daemon client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Client{
		socketPath: cfg.SocketPath,
		timeout:    timeout,
		retry:      errors.DefaultRetryConfig(),
	}
}

// Connect dials the socket, retrying briefly while a freshly started server
// comes up.
func (c *Client) Connect(ctx context.Context) (net.Conn, error) {
	conn, err := errors.RetryWithResult(ctx, c.retry, func() (net.Conn, error) {
		return net.DialTimeout("unix", c.socketPath, c.timeout)
	})
	if err != nil {
		return nil, errors.NetworkError("failed to connect to daemon", err).
			WithDetail("socket", c.socketPath).
			WithSuggestion("Start a server with 'symdex serve --daemon' or pass --snapshot")
	}
	return conn, nil
}

// IsRunning reports whether a server is accepting connections. It dials
// once without retrying.
func (c *Client) IsRunning() bool {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Ping checks that the server is responsive.
func (c *Client) Ping(ctx context.Context) error {
	var result PingResult
	return c.call(ctx, MethodPing, nil, &result)
}

// Status retrieves server status.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var status StatusResult
	if err := c.call(ctx, MethodStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// BroadSearch runs search.broad.
func (c *Client) BroadSearch(ctx context.Context, params BroadSearchParams) ([]search.SearchHit, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	var hits []search.SearchHit
	if err := c.call(ctx, MethodBroadSearch, params, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// ResolveClear runs lookup.clear.
func (c *Client) ResolveClear(ctx context.Context, identifier string) (*search.Resolution, error) {
	var res search.Resolution
	if err := c.call(ctx, MethodResolve, ResolveParams{Identifier: identifier}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FindTypeReferences runs search.references.
func (c *Client) FindTypeReferences(ctx context.Context, params ReferencesParams) (*search.ReferenceResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	var result search.ReferenceResult
	if err := c.call(ctx, MethodReferences, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// KeywordPaths runs keywords.paths.
func (c *Client) KeywordPaths(ctx context.Context, params KeywordPathsParams) ([]string, error) {
	var result KeywordPathsResult
	if err := c.call(ctx, MethodKeywordPaths, params, &result); err != nil {
		return nil, err
	}
	return result.Paths, nil
}

// call performs one request/response exchange and decodes the result.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	conn, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		ID:      c.nextID(),
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return errors.InternalError("failed to encode params", err)
		}
		req.Params = data
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return errors.NetworkError("failed to send request", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return errors.New(errors.ErrCodeNetworkTimeout, "failed to receive response", err)
	}

	if resp.Error != nil {
		return responseError(method, resp.Error)
	}

	if err := json.Unmarshal(resp.Result, result); err != nil {
		return errors.InternalError(fmt.Sprintf("failed to decode %s result", method), err)
	}
	return nil
}

// responseError rebuilds a SymdexError from an error response so callers
// see the same codes as a local query.
func responseError(method string, e *Error) error {
	code := errors.ErrCodeSearchFailed
	switch {
	case e.Data != nil && e.Data.Code != "":
		code = e.Data.Code
	case e.Code == ErrCodeInvalidParams:
		code = errors.ErrCodeInvalidInput
	}

	se := errors.New(code, e.Message, nil).WithDetail("method", method)
	if e.Data != nil {
		for k, v := range e.Data.Details {
			se.WithDetail(k, v)
		}
	}
	return se
}

// nextID generates a unique request ID.
func (c *Client) nextID() json.RawMessage {
	id := c.requestID.Add(1)
	return json.RawMessage(fmt.Sprintf("%q", fmt.Sprintf("req-%d", id)))
}
