package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/me/startupval/pkg/model"
)

// Request describes a single call to the backend.
type Request struct {
	Method string
	// Path is joined to Config.BaseURL, e.g. "/api/auth/login".
	Path string
	// Body is JSON-encoded when non-nil.
	Body any
	// Authorization is sent verbatim as the Authorization header when set.
	Authorization string
}

// Response is a successful (status < 400) backend response.
type Response struct {
	Status int
	Data   json.RawMessage
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return &ParseError{StatusCode: r.Status, Err: io.ErrUnexpectedEOF}
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return &ParseError{StatusCode: r.Status, Body: string(r.Data), Err: err}
	}
	return nil
}

// Client sends requests to the backend. It holds no per-user state: the
// caller supplies authorization on each Request.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
}

// NewClient creates a new API client with the given configuration.
func NewClient(config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
		logger: logger.With("component", "api-client"),
	}
}

// Config returns the client's configuration.
func (c *Client) Config() Config {
	return c.config
}

// URL resolves path against the configured base URL.
func (c *Client) URL(path string) string {
	base := strings.TrimRight(c.config.BaseURL, "/")
	if path == "" {
		return base + "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// Send performs a single attempt. It returns a *TransportError when no
// response arrived, an *HTTPError for status >= 400, and ctx.Err() if the
// caller's context ended.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.URL(req.Path)
	requestID := uuid.New().String()
	logger := c.logger.With("method", method, "url", target, "request_id", requestID)

	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Authorization != "" {
		httpReq.Header.Set("Authorization", req.Authorization)
	}

	if c.config.Debug {
		logger.Debug("starting request", "authorized", req.Authorization != "")
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		terr := classifyTransport(method, target, err)
		logger.Warn("request failed", "error", terr, "elapsed", time.Since(start))
		return nil, terr
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		terr := classifyTransport(method, target, err)
		logger.Warn("reading response failed", "status", httpResp.StatusCode, "error", terr)
		return nil, terr
	}

	if c.config.Debug {
		logger.Debug("response", "status", httpResp.StatusCode, "elapsed", time.Since(start), "body", string(respBody))
	}

	if httpResp.StatusCode >= http.StatusBadRequest {
		herr := &HTTPError{StatusCode: httpResp.StatusCode, Body: string(respBody)}
		var body model.ErrorBody
		if json.Unmarshal(respBody, &body) == nil {
			herr.Message = body.Message
		}
		logger.Warn("response error", "status", herr.StatusCode, "message", herr.Message)
		return nil, herr
	}

	return &Response{Status: httpResp.StatusCode, Data: respBody}, nil
}
