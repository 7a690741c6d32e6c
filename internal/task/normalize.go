package task

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	simplejson "github.com/bitly/go-simplejson"
)

// Category groups upstream status strings by meaning.
type Category int

// Status categories.
const (
	CategoryUnrecognized Category = iota
	CategoryCompletion
	CategoryFailure
	CategoryInProgress
	CategoryNotFound
)

var vocabulary = map[string]Category{
	"completed":   CategoryCompletion,
	"succeeded":   CategoryCompletion,
	"success":     CategoryCompletion,
	"done":        CategoryCompletion,
	"finished":    CategoryCompletion,
	"failed":      CategoryFailure,
	"error":       CategoryFailure,
	"cancelled":   CategoryFailure,
	"canceled":    CategoryFailure,
	"processing":  CategoryInProgress,
	"pending":     CategoryInProgress,
	"running":     CategoryInProgress,
	"queued":      CategoryInProgress,
	"in_progress": CategoryInProgress,
	"not_found":   CategoryNotFound,
}

// Classify maps an upstream status string onto a Category, case-insensitively.
func Classify(status string) Category {
	return vocabulary[strings.ToLower(strings.TrimSpace(status))]
}

// Probe locations, tried in order. A path step that lands on an array
// continues from its first element.
var (
	StatusProbes = [][]string{
		{"status"},
		{"task_status"},
		{"state"},
		{"data", "status"},
		{"result", "status"},
	}

	VideoURLProbes = [][]string{
		{"video_url"},
		{"url"},
		{"video"},
		{"result", "video_url"},
		{"result", "url"},
		{"result", "video"},
		{"output", "video_url"},
		{"output", "url"},
		{"output", "video"},
		{"data", "video_url"},
		{"data", "url"},
		{"data", "video"},
		{"metadata", "video_url"},
		{"metadata", "url"},
		{"metadata", "video"},
	}

	ProgressProbes = [][]string{
		{"progress"},
		{"percent"},
		{"data", "progress"},
		{"result", "progress"},
	}

	// ErrorProbes are tried in priority order.
	ErrorProbes = [][]string{
		{"error"},
		{"message"},
		{"error_message"},
	}
)

// Normalize maps a provider status payload onto a Status.
func Normalize(taskID string, body []byte) Status {
	st := Status{ID: taskID, State: StateUnknown, Raw: RawJSON(body)}

	js, err := simplejson.NewJson(body)
	if err != nil {
		st.Error = "unreadable status payload"
		return st
	}
	return normalizeJSON(js, st)
}

func normalizeJSON(js *simplejson.Json, st Status) Status {
	upstream, _ := FirstString(js, StatusProbes)
	videoURL, _ := FirstString(js, VideoURLProbes)

	st.UpstreamStatus = upstream
	st.Progress = ProgressOf(js)
	st.State = StateOf(upstream, videoURL)
	switch st.State {
	case StateCompleted:
		st.VideoURL = videoURL
	case StateFailed:
		st.Error = ErrorMessage(js)
	}
	return st
}

// StateOf combines an upstream status string and a probed video URL into a State.
// Completion requires both signals; a completion synonym without a URL is StateUnknown.
func StateOf(upstream, videoURL string) State {
	switch Classify(upstream) {
	case CategoryCompletion:
		if videoURL != "" {
			return StateCompleted
		}
	case CategoryFailure:
		return StateFailed
	case CategoryInProgress:
		switch strings.ToLower(strings.TrimSpace(upstream)) {
		case "pending", "queued":
			return StatePending
		default:
			return StateProcessing
		}
	case CategoryNotFound:
		return StateNotFound
	}
	return StateUnknown
}

// FirstString returns the first non-empty string found at any of the probe paths.
func FirstString(js *simplejson.Json, probes [][]string) (string, bool) {
	for _, path := range probes {
		node, ok := lookup(js, path)
		if !ok {
			continue
		}
		if s, ok := stringValue(node); ok {
			return s, true
		}
	}
	return "", false
}

// ErrorMessage returns the first message found under "error", "message" or
// "error_message", in that order. An "error" object contributes its "message".
func ErrorMessage(js *simplejson.Json) string {
	for _, path := range ErrorProbes {
		node, ok := lookup(js, path)
		if !ok {
			continue
		}
		if s, ok := stringValue(node); ok {
			return s
		}
		if msg, ok := node.CheckGet("message"); ok {
			if s, ok := stringValue(msg); ok {
				return s
			}
		}
	}
	return ""
}

// ProgressOf returns the provider-reported percentage clamped to 0-100,
// or 0 when none is present. Numbers and strings such as "40" or "40%" are accepted.
func ProgressOf(js *simplejson.Json) int {
	for _, path := range ProgressProbes {
		node, ok := lookup(js, path)
		if !ok {
			continue
		}
		if p, ok := numberValue(node); ok {
			return clampPercent(p)
		}
	}
	return 0
}

func lookup(js *simplejson.Json, path []string) (*simplejson.Json, bool) {
	cur := js
	for _, key := range path {
		cur = firstElement(cur)
		if cur == nil {
			return nil, false
		}
		next, ok := cur.CheckGet(key)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur.Interface() != nil
}

func firstElement(js *simplejson.Json) *simplejson.Json {
	arr, err := js.Array()
	if err != nil {
		return js
	}
	if len(arr) == 0 {
		return nil
	}
	return js.GetIndex(0)
}

func stringValue(js *simplejson.Json) (string, bool) {
	js = firstElement(js)
	if js == nil {
		return "", false
	}
	if s, err := js.String(); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	if n, ok := js.Interface().(json.Number); ok {
		return n.String(), true
	}
	// Objects such as {"video": {"url": "..."}}.
	if u, ok := js.CheckGet("url"); ok {
		if s, err := u.String(); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

func numberValue(js *simplejson.Json) (float64, bool) {
	if f, err := js.Float64(); err == nil {
		return f, true
	}
	s, err := js.String()
	if err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func clampPercent(p float64) int {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(math.Round(p))
}

// RawJSON returns body as a JSON value: unchanged when valid, otherwise as a quoted string.
func RawJSON(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}
