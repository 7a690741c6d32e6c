// Package relay forwards generation and status requests to the upstream provider
// and normalizes its heterogeneous responses.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies relay and polling failures.
type Kind string

// Failure kinds.
const (
	// KindConfiguration means the credential is missing or a placeholder. Never retried.
	KindConfiguration Kind = "configuration_error"
	// KindUpstreamHTTP means the provider answered with a non-2xx status.
	KindUpstreamHTTP Kind = "upstream_http_error"
	// KindTransport means the provider could not be reached or read.
	KindTransport Kind = "transport_error"
	// KindNotFound means the provider does not recognize the task ID.
	KindNotFound Kind = "not_found"
	// KindTerminalFailure means the provider reported the job failed or cancelled.
	KindTerminalFailure Kind = "terminal_failure"
	// KindInvalidRequest means the query itself was unusable, such as a blank task ID.
	KindInvalidRequest Kind = "invalid_request"
)

// APIError is the normalized error object carried inside relay responses.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Error is a typed relay failure.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Status is the HTTP status the failure corresponds to (the provider's for KindUpstreamHTTP).
	Status int
	// Body is the provider's error body, parsed JSON or a quoted raw string.
	Body json.RawMessage
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("relay: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("relay: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// API returns the client-facing error object.
func (e *Error) API() *APIError {
	return &APIError{Code: e.Code, Message: e.Message, Status: e.Status}
}

// KindOf returns the Kind of a relay error, or "" if err is not one.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
