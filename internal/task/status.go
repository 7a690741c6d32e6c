// Package task defines the normalized status of a video-generation task and
// the rules that map heterogeneous provider payloads onto it.
package task

import "encoding/json"

// State is the normalized status of a task.
type State string

// Normalized task states.
const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateNotFound   State = "not_found" // Provider does not know the task ID
	StateError      State = "error"     // The status relay could not reach or read the provider
	StateUnknown    State = "unknown"   // Unrecognized status, or completion without a video URL
)

var canonicalStates = map[State]bool{
	StatePending:    true,
	StateProcessing: true,
	StateCompleted:  true,
	StateFailed:     true,
	StateNotFound:   true,
	StateError:      true,
	StateUnknown:    true,
}

// IsCanonical reports whether s is one of the normalized states.
func IsCanonical(s string) bool {
	return canonicalStates[State(s)]
}

// IsTerminal returns true if the state ends polling.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// IsInProgress returns true if the provider reported the task as still running.
func (s State) IsInProgress() bool {
	return s == StatePending || s == StateProcessing
}

// Status is the normalized result of one status query.
// It is derived fresh on every poll and never merged with an earlier value.
type Status struct {
	// ID is the task identifier that was queried.
	ID string `json:"id"`
	// State is the normalized state.
	State State `json:"status"`
	// VideoURL is set only when State is StateCompleted.
	VideoURL string `json:"video_url,omitempty"`
	// Progress is the provider-reported percentage (0-100); 0 means not reported.
	Progress int `json:"progress"`
	// Error is the provider- or relay-supplied error message, if any.
	Error string `json:"error,omitempty"`
	// ErrorKind is set only by the status relay when it could not produce a
	// provider status itself (transport failure, rejected query, missing token).
	ErrorKind string `json:"error_kind,omitempty"`
	// UpstreamStatus is the status string exactly as the provider sent it.
	UpstreamStatus string `json:"upstream_status,omitempty"`
	// Raw is the provider payload, preserved for inspection.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Decode parses a status relay response. A body carrying ErrorKind is a
// relay-level failure and is taken as-is; every other body is normalized, so
// a provider payload forwarded untouched classifies exactly like a normalized one.
func Decode(taskID string, body []byte) Status {
	var relayed Status
	err := json.Unmarshal(body, &relayed)
	if err == nil && relayed.ErrorKind != "" {
		if relayed.ID == "" {
			relayed.ID = taskID
		}
		return relayed
	}

	st := Normalize(taskID, body)
	if err == nil && IsCanonical(string(relayed.State)) {
		// Already normalized upstream: keep the original provider payload and status.
		if len(relayed.Raw) > 0 {
			st.Raw = relayed.Raw
		}
		if relayed.UpstreamStatus != "" {
			st.UpstreamStatus = relayed.UpstreamStatus
		}
		if st.Error == "" {
			st.Error = relayed.Error
		}
	}
	return st
}
