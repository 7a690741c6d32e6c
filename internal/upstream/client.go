package upstream

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
)

// Static errors for provider client operations.
var (
	// ErrSubmitURLRequired is returned when the submission endpoint is not provided.
	ErrSubmitURLRequired = errors.New("upstream: submit URL is required")
	// ErrStatusURLRequired is returned when Status is called without a status endpoint.
	ErrStatusURLRequired = errors.New("upstream: status URL is required")
	// ErrTaskIDRequired is returned when the task ID is not provided.
	ErrTaskIDRequired = errors.New("upstream: task ID is required")
	// ErrTransport is returned when the provider could not be reached or read.
	ErrTransport = errors.New("upstream: transport error")
	// ErrNotFound is returned when the provider answers 404.
	ErrNotFound = errors.New("upstream: not found")
	// ErrRequestFailed is returned when the provider answers with any other non-2xx status.
	ErrRequestFailed = errors.New("upstream: request failed")
)

// Client defines the interface for talking to the provider.
// Neither method retries; callers own retry policy.
type Client interface {
	// Submit posts a generation request and returns the raw 2xx response.
	Submit(ctx context.Context, token string, req SubmitRequest) (Response, error)

	// Status fetches the raw status payload for a task.
	Status(ctx context.Context, token, taskID string) (Response, error)
}

// HTTPClient is the HTTP implementation of Client.
type HTTPClient struct {
	submitURL  string
	statusURL  string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithStatusURL sets the base URL that task IDs are appended to.
func WithStatusURL(u string) ClientOption {
	return func(hc *HTTPClient) {
		hc.statusURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		if d > 0 {
			hc.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a new provider HTTP client.
// Credentials are passed per call so the relay can check them before any network I/O.
func NewClient(submitURL string, opts ...ClientOption) (*HTTPClient, error) {
	if submitURL == "" {
		return nil, ErrSubmitURLRequired
	}

	c := &HTTPClient{
		submitURL:  submitURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Submit posts a generation request to the provider.
func (c *HTTPClient) Submit(ctx context.Context, token string, req SubmitRequest) (Response, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("upstream: marshal request: %w", err)
	}
	return c.doRequest(ctx, http.MethodPost, c.submitURL, token, bodyBytes)
}

// Status fetches the status payload for taskID.
func (c *HTTPClient) Status(ctx context.Context, token, taskID string) (Response, error) {
	if taskID == "" {
		return Response{}, ErrTaskIDRequired
	}
	if c.statusURL == "" {
		return Response{}, ErrStatusURLRequired
	}

	u := fmt.Sprintf("%s/%s", c.statusURL, url.PathEscape(taskID))
	return c.doRequest(ctx, http.MethodGet, u, token, nil)
}

// doRequest performs a single HTTP request.
func (c *HTTPClient) doRequest(ctx context.Context, method, u, token string, body []byte) (Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return Response{}, fmt.Errorf("upstream: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodGet {
		req.Header.Set("Cache-Control", "no-store")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, &HTTPError{StatusCode: resp.StatusCode, Body: respBody}
	}

	return Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
