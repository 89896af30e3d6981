// Package remote implements the HTTP JSON client for the remote document
// store. The remote store is the source of truth; this package only moves
// opaque JSON documents and never retries a failed call; a failure is
// surfaced to the caller immediately.
package remote

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

	"go.uber.org/zap"

	"github.com/bygghuset-as/procurement-api/internal/config"
	"github.com/bygghuset-as/procurement-api/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Client provides access to the remote document API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// RequestError describes a non-2xx response or transport failure from the
// remote API.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("remote %s %s failed: %s", e.Method, e.Path, e.Body)
	}
	return fmt.Sprintf("remote %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// NewClient creates a new remote API client from configuration.
func NewClient(cfg *config.RemoteAPIConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote API base URL is required")
	}

	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger.Info("remote API client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.Duration("timeout", timeout),
	)

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     logger,
	}, nil
}

// envelope is the remote API's response wrapper.
type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
}

// do performs a single request. The response envelope's data payload is
// decoded into out when out is non-nil; the pagination block, when present,
// is returned to the caller.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) (*domain.Pagination, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("remote request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, &RequestError{Method: method, Path: path, Body: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: err.Error()}
	}

	c.logger.Debug("remote request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncateBody(string(respBody), 500),
		}
	}

	if out == nil {
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response envelope: %w", err)
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return env.Pagination, nil
}

// Health checks remote API reachability.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
	return err
}

func truncateBody(body string, maxLen int) string {
	if len(body) <= maxLen {
		return body
	}
	return body[:maxLen] + "..."
}
