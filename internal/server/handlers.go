package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/text2video-api/internal/catalog"
	"github.com/maauso/text2video-api/internal/relay"
	"github.com/maauso/text2video-api/internal/task"
)

// maxRequestBytes bounds request bodies, which may carry a base64 image.
const maxRequestBytes = 20 << 20

// Submitter relays a generation request to the provider.
type Submitter interface {
	Submit(ctx context.Context, req relay.GenerationRequest) (*relay.Envelope, error)
}

// StatusSource reports the normalized status of a task.
type StatusSource interface {
	Status(ctx context.Context, taskID string) (task.Status, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	submitter    Submitter
	statuses     StatusSource
	catalog      *catalog.Catalog
	defaultModel string
	validator    *validator.Validate
	logger       *slog.Logger
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithDefaultModel sets the model ID advertised as the default by ListModels.
func WithDefaultModel(id string) HandlerOption {
	return func(h *Handlers) {
		if id != "" {
			h.defaultModel = id
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(submitter Submitter, statuses StatusSource, cat *catalog.Catalog, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if cat == nil {
		cat = catalog.Default()
	}
	h := &Handlers{
		submitter:    submitter,
		statuses:     statuses,
		catalog:      cat,
		defaultModel: relay.DefaultModelID,
		validator:    validator.New(),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateVideo handles POST /api/videos/text2video requests.
// Once the request is valid the response is always 200; relay failures are
// reported inside the envelope so pollers never special-case HTTP errors.
func (h *Handlers) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req CreateVideoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	// Validate request
	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	env, err := h.submitter.Submit(r.Context(), relay.GenerationRequest{
		Prompt:         req.Prompt,
		Model:          req.Model,
		Seconds:        req.Seconds,
		AspectRatio:    req.AspectRatio,
		Image:          req.Image,
		GenerationMode: req.GenerationMode,
	})
	if err != nil {
		h.logger.Warn("generation request not accepted",
			slog.String("kind", string(relay.KindOf(err))),
			slog.String("error", err.Error()),
		)
	}
	if env == nil {
		env = &relay.Envelope{
			Object: "video.generation",
			Model:  req.Model,
			Status: string(task.StateError),
			Error: &relay.APIError{
				Code:    "internal_error",
				Message: "generation request could not be relayed",
				Status:  http.StatusInternalServerError,
			},
		}
	}

	writeJSON(w, http.StatusOK, env)
}

// GetTask handles GET /api/videos/tasks/{taskId} requests. The response is always 200.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(r.PathValue("taskId"))
	if taskID == "" {
		writeJSON(w, http.StatusOK, task.Status{
			State:     task.StateError,
			Error:     "task ID is required",
			ErrorKind: string(relay.KindInvalidRequest),
		})
		return
	}

	st, err := h.statuses.Status(r.Context(), taskID)
	if err != nil {
		h.logger.Warn("task status unavailable",
			slog.String("task_id", taskID),
			slog.String("kind", string(relay.KindOf(err))),
			slog.String("error", err.Error()),
		)
	}
	if st.ID == "" {
		st.ID = taskID
	}
	if st.State == "" {
		st.State = task.StateError
	}
	if st.State == task.StateError && st.ErrorKind == "" {
		st.ErrorKind = string(relay.KindTransport)
		if kind := relay.KindOf(err); kind != "" {
			st.ErrorKind = string(kind)
		}
	}

	writeJSON(w, http.StatusOK, st)
}

// ListModels handles GET /api/models requests.
func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModelListResponse{
		Object:  "list",
		Default: h.defaultModel,
		Data:    h.catalog.List(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
