// Package upstream provides an HTTP client for the third-party video-generation provider.
// It only moves bytes: response bodies are returned untouched and interpreted by the relay.
package upstream

import (
	"errors"
	"fmt"
)

// SubmitRequest is the JSON body sent to the provider's submission endpoint.
type SubmitRequest struct {
	ModelName   string `json:"model_name"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
	Duration    string `json:"duration"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Response is a successful (2xx) provider response.
type Response struct {
	StatusCode int
	Body       []byte
}

// HTTPError is returned when the provider answers with a non-2xx status.
// It wraps ErrRequestFailed, or ErrNotFound for 404.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream: request failed with status %d: %s", e.StatusCode, truncate(e.Body, 512))
}

// Unwrap lets errors.Is match ErrNotFound and ErrRequestFailed.
func (e *HTTPError) Unwrap() error {
	if e.StatusCode == 404 {
		return ErrNotFound
	}
	return ErrRequestFailed
}

// AsHTTPError extracts an *HTTPError from err.
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
