package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	simplejson "github.com/bitly/go-simplejson"

	"github.com/maauso/text2video-api/internal/id"
	"github.com/maauso/text2video-api/internal/task"
	"github.com/maauso/text2video-api/internal/upstream"
)

// GenerationRequest is a user-supplied generation request.
type GenerationRequest struct {
	Prompt      string
	Model       string
	Seconds     int
	AspectRatio string
	// Image is a base64 string or data URL; forwarded only to models that support images.
	Image string
	// GenerationMode overrides the mode echoed for image requests.
	GenerationMode string
}

// Metadata echoes the request alongside the relay outcome.
type Metadata struct {
	Prompt         string          `json:"prompt"`
	Duration       int             `json:"duration"`
	AspectRatio    string          `json:"aspect_ratio"`
	HasImage       bool            `json:"has_image"`
	ImageForwarded bool            `json:"image_forwarded"`
	UnknownModel   bool            `json:"unknown_model,omitempty"`   // Limits fell back to catalog defaults
	DefaultMapping bool            `json:"default_mapping,omitempty"` // No mapping entry of its own
	ResponseTimeMs int64           `json:"response_time_ms"`
	RawResponse    json.RawMessage `json:"raw_response,omitempty"`
}

// Envelope is the normalized submission result.
type Envelope struct {
	ID             string    `json:"id,omitempty"`
	Object         string    `json:"object"`
	Created        int64     `json:"created"`
	Model          string    `json:"model"`
	UpstreamModel  string    `json:"upstream_model"`
	Status         string    `json:"status"`
	VideoURL       string    `json:"video_url,omitempty"`
	GenerationMode string    `json:"generation_mode"`
	Metadata       Metadata  `json:"metadata"`
	Error          *APIError `json:"error,omitempty"`
}

// Submitter relays generation requests to the provider exactly once.
type Submitter struct {
	client upstream.Client
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewSubmitter creates a Submitter. Unset Config fields take the built-in defaults.
func NewSubmitter(client upstream.Client, cfg Config, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		client: client,
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// Submit maps req onto the provider payload and posts it once.
// The returned Envelope is never nil; on failure it carries the normalized
// error and the request echo, and the error is a *Error.
func (s *Submitter) Submit(ctx context.Context, req GenerationRequest) (*Envelope, error) {
	modelID := strings.TrimSpace(req.Model)
	if modelID == "" {
		modelID = s.cfg.DefaultModel
	}
	model := s.cfg.Catalog.Lookup(modelID)
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = DefaultAspectRatio
	}
	duration := model.ClampDuration(req.Seconds)
	forwardImage := req.Image != "" && model.SupportsImage

	env := &Envelope{
		Object:         "video.generation",
		Created:        s.now().Unix(),
		Model:          modelID,
		UpstreamModel:  s.cfg.Mapping.Resolve(modelID),
		Status:         string(task.StatePending),
		GenerationMode: ModeText2Video,
		Metadata: Metadata{
			Prompt:         req.Prompt,
			Duration:       duration,
			AspectRatio:    aspect,
			HasImage:       req.Image != "",
			ImageForwarded: forwardImage,
			UnknownModel:   !s.cfg.Catalog.Has(modelID),
			DefaultMapping: !s.cfg.Mapping.Known(modelID),
		},
	}
	if env.Metadata.UnknownModel || env.Metadata.DefaultMapping {
		s.logger.Warn("model not recognized, using defaults",
			slog.String("model", modelID),
			slog.String("upstream_model", env.UpstreamModel),
		)
	}
	if forwardImage {
		env.GenerationMode = ModeImage2Video
		if req.GenerationMode != "" {
			env.GenerationMode = req.GenerationMode
		}
	} else if req.Image != "" {
		s.logger.Warn("dropping image for model without image support",
			slog.String("model", modelID),
		)
	}

	if !IsConfigured(s.cfg.Credential) {
		return s.fail(env, &Error{
			Kind:    KindConfiguration,
			Code:    "missing_api_key",
			Message: "upstream API key is not configured",
			Status:  http.StatusInternalServerError,
		})
	}

	payload := upstream.SubmitRequest{
		ModelName:   env.UpstreamModel,
		Prompt:      req.Prompt,
		AspectRatio: aspect,
		Duration:    strconv.Itoa(duration),
	}
	if forwardImage {
		payload.ImageURL = req.Image
	}

	start := s.now()
	resp, err := s.client.Submit(ctx, s.cfg.Credential, payload)
	env.Metadata.ResponseTimeMs = s.now().Sub(start).Milliseconds()
	if err != nil {
		return s.fail(env, s.classify(err))
	}

	s.applyResponse(env, resp.Body)

	s.logger.Info("generation submitted",
		slog.String("task_id", env.ID),
		slog.String("model", modelID),
		slog.String("upstream_model", env.UpstreamModel),
		slog.String("status", env.Status),
		slog.Int64("response_time_ms", env.Metadata.ResponseTimeMs),
	)

	return env, nil
}

// applyResponse fills id, status and video URL from a 2xx provider body.
func (s *Submitter) applyResponse(env *Envelope, body []byte) {
	env.Metadata.RawResponse = task.RawJSON(body)

	js, err := simplejson.NewJson(body)
	if err != nil {
		s.logger.Warn("provider returned a non-JSON submission body")
		env.ID = id.Generate()
		return
	}

	taskID, ok := task.FirstString(js, s.cfg.TaskIDProbes)
	if !ok {
		taskID = id.Generate()
		s.logger.Warn("provider returned no task ID, using generated fallback",
			slog.String("task_id", taskID),
		)
	}
	env.ID = taskID

	videoURL, _ := task.FirstString(js, s.cfg.VideoURLProbes)
	upstreamStatus, _ := task.FirstString(js, task.StatusProbes)

	// Some providers skip the task flow and return the video directly.
	if videoURL != "" && upstreamStatus == "" {
		upstreamStatus = string(task.StateCompleted)
	}

	state := task.StateOf(upstreamStatus, videoURL)
	switch state {
	case task.StateCompleted:
		env.VideoURL = videoURL
	case task.StateFailed:
		env.Error = &APIError{
			Code:    string(KindTerminalFailure),
			Message: failureMessage(js),
			Status:  http.StatusOK,
		}
	case task.StateUnknown, task.StateNotFound:
		state = task.StatePending
	}
	env.Status = string(state)
}

// classify turns an upstream client error into a *Error.
func (s *Submitter) classify(err error) *Error {
	if he, ok := upstream.AsHTTPError(err); ok {
		code, message := parseErrorBody(he.Body)
		if code == "" {
			code = string(KindUpstreamHTTP)
		}
		if message == "" {
			message = http.StatusText(he.StatusCode)
		}
		return &Error{
			Kind:    KindUpstreamHTTP,
			Code:    code,
			Message: message,
			Status:  he.StatusCode,
			Body:    task.RawJSON(he.Body),
			Err:     err,
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, upstream.ErrTransport) {
		return &Error{
			Kind:    KindTransport,
			Code:    string(KindTransport),
			Message: "could not reach the video provider",
			Status:  http.StatusBadGateway,
			Err:     err,
		}
	}

	return &Error{
		Kind:    KindTransport,
		Code:    "internal_error",
		Message: err.Error(),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func (s *Submitter) fail(env *Envelope, rerr *Error) (*Envelope, error) {
	env.Status = string(task.StateError)
	env.Error = rerr.API()
	if len(rerr.Body) > 0 {
		env.Metadata.RawResponse = rerr.Body
	}
	s.logger.Error("generation submit failed",
		slog.String("kind", string(rerr.Kind)),
		slog.String("code", rerr.Code),
		slog.Int("status", rerr.Status),
		slog.String("message", rerr.Message),
	)
	return env, rerr
}

var errorCodeProbes = [][]string{
	{"error", "code"},
	{"code"},
	{"error", "type"},
	{"error_code"},
}

// parseErrorBody extracts a code and message from a provider error body,
// falling back to the raw text when it is not JSON.
func parseErrorBody(body []byte) (code, message string) {
	js, err := simplejson.NewJson(body)
	if err != nil {
		return "", strings.TrimSpace(string(body))
	}
	code, _ = task.FirstString(js, errorCodeProbes)
	message = task.ErrorMessage(js)
	if message == "" {
		if s, err := js.String(); err == nil {
			message = s
		}
	}
	return code, message
}

func failureMessage(js *simplejson.Json) string {
	if msg := task.ErrorMessage(js); msg != "" {
		return msg
	}
	return "video generation failed"
}
