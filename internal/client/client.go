// Package client talks to the text2video HTTP API: it submits generation
// requests, reads task status for the poller and downloads finished videos.
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

	"github.com/maauso/text2video-api/internal/catalog"
	"github.com/maauso/text2video-api/internal/poller"
	"github.com/maauso/text2video-api/internal/relay"
	"github.com/maauso/text2video-api/internal/task"
)

// Static errors for API client operations.
var (
	// ErrBaseURLRequired is returned when the API base URL is not provided.
	ErrBaseURLRequired = errors.New("client: base URL is required")
	// ErrTaskIDRequired is returned when the task ID is not provided.
	ErrTaskIDRequired = errors.New("client: task ID is required")
	// ErrVideoURLRequired is returned when Download is called without a URL.
	ErrVideoURLRequired = errors.New("client: video URL is required")
	// ErrRequestFailed is returned when the API answers with a non-2xx status.
	ErrRequestFailed = errors.New("client: request failed")
	// ErrRejected is returned when the envelope reports an error or failed status.
	ErrRejected = errors.New("client: generation rejected")
)

// Paths of the text2video API.
const (
	SubmitPath = "/api/videos/text2video"
	TasksPath  = "/api/videos/tasks/"
	ModelsPath = "/api/models"
)

// SubmitRequest is the body of a generation request.
type SubmitRequest struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model,omitempty"`
	Seconds        int    `json:"seconds,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	Image          string `json:"image,omitempty"`
	GenerationMode string `json:"generation_mode,omitempty"`
}

// ModelList is the response of the models endpoint.
type ModelList struct {
	Object  string          `json:"object"`
	Default string          `json:"default"`
	Data    []catalog.Model `json:"data"`
}

// Client is an HTTP client for the text2video API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit posts a generation request once. The envelope is returned whenever
// the API answered; an envelope carrying an error also yields ErrRejected.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*relay.Envelope, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("client: marshal request: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, c.baseURL+SubmitPath, body)
	if err != nil {
		return nil, err
	}

	var env relay.Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("client: decode envelope: %w", err)
	}

	if env.Error != nil {
		return &env, fmt.Errorf("%w: %s: %s", ErrRejected, env.Error.Code, env.Error.Message)
	}
	if env.Status == string(task.StateFailed) || env.Status == string(task.StateError) {
		return &env, fmt.Errorf("%w: status %s", ErrRejected, env.Status)
	}
	return &env, nil
}

// Fetch returns the normalized status of taskID. It satisfies poller.Fetcher.
func (c *Client) Fetch(ctx context.Context, taskID string) (task.Status, error) {
	if taskID == "" {
		return task.Status{}, ErrTaskIDRequired
	}

	respBody, err := c.do(ctx, http.MethodGet, c.baseURL+TasksPath+url.PathEscape(taskID), nil)
	if err != nil {
		return task.Status{}, err
	}
	return task.Decode(taskID, respBody), nil
}

// Models returns the selectable models.
func (c *Client) Models(ctx context.Context) (ModelList, error) {
	respBody, err := c.do(ctx, http.MethodGet, c.baseURL+ModelsPath, nil)
	if err != nil {
		return ModelList{}, err
	}

	var list ModelList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return ModelList{}, fmt.Errorf("client: decode models: %w", err)
	}
	return list, nil
}

// Download streams the video at videoURL into w and returns the bytes written.
func (c *Client) Download(ctx context.Context, videoURL string, w io.Writer) (int64, error) {
	if videoURL == "" {
		return 0, ErrVideoURLRequired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return 0, fmt.Errorf("client: create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("client: download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: download status %d", ErrRequestFailed, resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("client: download: %w", err)
	}
	return n, nil
}

// do performs a single request against the API and returns the 2xx body.
func (c *Client) do(ctx context.Context, method, u string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodGet {
		req.Header.Set("Cache-Control", "no-store")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}

// Compile-time check that Client can drive a poller.
var _ poller.Fetcher = (*Client)(nil)
