// Package client talks to a running lobo instance over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brianly1003/lobo/internal/domain"
	api "github.com/brianly1003/lobo/internal/server/http"
)

// DefaultTimeout applies when New is given a zero timeout.
const DefaultTimeout = 5 * time.Second

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, e.Code)
	}
	return e.Message
}

// Unwrap maps the error code back to the matching domain sentinel so
// callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case domain.ErrCodeAlreadyWatched:
		return domain.ErrAlreadyWatched
	case domain.ErrCodeNotFound:
		return domain.ErrNotFound
	case domain.ErrCodeInvalidPath:
		return domain.ErrInvalidPath
	case domain.ErrCodeSubscriptionFailed:
		return domain.NewSubscriptionError(e.Path, errors.New(e.Message))
	default:
		return nil
	}
}

// Client is an HTTP client for the lobo control API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL, e.g. http://127.0.0.1:8767.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks that the server answers GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Status returns the server's state, status line and watch list.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Directories lists the registered directories.
func (c *Client) Directories(ctx context.Context) ([]api.DirectoryInfo, error) {
	var resp api.DirectoriesResponse
	if err := c.do(ctx, http.MethodGet, "/api/directories", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Directories, nil
}

// Add registers a directory.
func (c *Client) Add(ctx context.Context, path string) (api.DirectoryInfo, error) {
	var resp api.DirectoryInfo
	err := c.do(ctx, http.MethodPost, "/api/directories", api.DirectoryRequest{Path: path}, &resp)
	return resp, err
}

// Remove unregisters a directory.
func (c *Client) Remove(ctx context.Context, path string) (api.DirectoryInfo, error) {
	var resp api.DirectoryInfo
	err := c.do(ctx, http.MethodDelete, "/api/directories?path="+url.QueryEscape(path), nil, &resp)
	return resp, err
}

// StartWatching starts the session. Directories that could not be
// subscribed are listed in the reply's Failed field.
func (c *Client) StartWatching(ctx context.Context) (api.WatchingResponse, error) {
	var resp api.WatchingResponse
	err := c.do(ctx, http.MethodPost, "/api/watching/start", nil, &resp)
	return resp, err
}

// StopWatching stops the session.
func (c *Client) StopWatching(ctx context.Context) (api.WatchingResponse, error) {
	var resp api.WatchingResponse
	err := c.do(ctx, http.MethodPost, "/api/watching/stop", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e api.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &e) == nil {
			apiErr.Code = e.Code
			apiErr.Message = e.Error
			apiErr.Path = e.Path
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
