package asearcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ClientConfig holds configuration for the ASearcher client
type ClientConfig struct {
	// Timeout for a single HTTP request
	Timeout time.Duration
	// Custom HTTP client (optional)
	HTTPClient *http.Client
	// Additional headers to include in requests
	Headers map[string]string
	// Logger for request diagnostics (optional)
	Logger *zerolog.Logger
}

// DefaultClientConfig returns a default client configuration
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout: 300 * time.Second,
		Headers: make(map[string]string),
	}
}

// Client talks to one ASearcher service. It issues one request at a time
// and holds no per-query state.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// NewClient creates a new client for the service at baseURL
func NewClient(baseURL string, config *ClientConfig) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	if config == nil {
		config = DefaultClientConfig()
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With().Str("component", "asearcher_client").Logger(),
	}, nil
}

// BaseURL returns the service root the client was created with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health calls GET /health
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.doJSON(ctx, "health", http.MethodGet, "/health", nil, &status, "status", "llm_status"); err != nil {
		return nil, err
	}
	return &status, nil
}

// SubmitQuery calls POST /query and returns the handle of the started query.
// The request is sent as-is; validation is left to the service.
func (c *Client) SubmitQuery(ctx context.Context, req *QueryRequest) (*QueryHandle, error) {
	if req == nil {
		return nil, fmt.Errorf("query request cannot be nil")
	}

	var resp submitResponse
	if err := c.doJSON(ctx, "submit query", http.MethodPost, "/query", req, &resp, "query_id"); err != nil {
		return nil, err
	}
	if resp.QueryID == nil || *resp.QueryID == "" {
		return nil, &ProtocolError{Op: "submit query", StatusCode: http.StatusOK, Field: "query_id"}
	}

	return &QueryHandle{QueryID: *resp.QueryID}, nil
}

// GetQuery calls GET /query/{queryID} and returns the full snapshot
func (c *Client) GetQuery(ctx context.Context, queryID string) (*QuerySnapshot, error) {
	if queryID == "" {
		return nil, fmt.Errorf("query ID cannot be empty")
	}

	var snapshot QuerySnapshot
	path := "/query/" + url.PathEscape(queryID)
	if err := c.doJSON(ctx, "get query", http.MethodGet, path, nil, &snapshot, "status", "steps"); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// doJSON sends a request with an optional JSON body and decodes a 200 response
// into out. Every name in required must be a key of the response object.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body any, out any, required ...string) error {
	fullURL := c.baseURL + path

	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(reqBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.config.Headers {
		httpReq.Header.Set(key, value)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug().Err(err).Str("op", op).Str("url", fullURL).Dur("duration", time.Since(start)).Msg("request failed")
		return &TransportError{Op: method, URL: fullURL, Err: err}
	}
	defer httpResp.Body.Close()

	c.logger.Debug().
		Str("op", op).
		Str("url", fullURL).
		Int("status", httpResp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request done")

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return &ProtocolError{
			Op:         op,
			StatusCode: httpResp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &TransportError{Op: method, URL: fullURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(respBody, &fields); err != nil {
		return &ProtocolError{
			Op:         op,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}
	for _, name := range required {
		if _, ok := fields[name]; !ok {
			return &ProtocolError{Op: op, StatusCode: httpResp.StatusCode, Field: name}
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &ProtocolError{
			Op:         op,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}

	return nil
}

// Close releases idle connections held by the underlying HTTP client
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
