package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/text2video-api/internal/catalog"
	"github.com/maauso/text2video-api/internal/relay"
	"github.com/maauso/text2video-api/internal/task"
)

// mockSubmitter implements Submitter for testing.
type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Submit(ctx context.Context, req relay.GenerationRequest) (*relay.Envelope, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*relay.Envelope), args.Error(1)
}

// mockStatusSource implements StatusSource for testing.
type mockStatusSource struct {
	mock.Mock
}

func (m *mockStatusSource) Status(ctx context.Context, taskID string) (task.Status, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(task.Status), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestHandlers(t *testing.T) (*Handlers, *mockSubmitter, *mockStatusSource) {
	t.Helper()
	submitter := &mockSubmitter{}
	statuses := &mockStatusSource{}
	h := NewHandlers(submitter, statuses, catalog.Default(), testLogger())
	return h, submitter, statuses
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/videos/text2video", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}

func TestCreateVideo_Success(t *testing.T) {
	h, submitter, _ := newTestHandlers(t)

	submitter.On("Submit", mock.Anything, relay.GenerationRequest{
		Prompt:      "a cat",
		Model:       "kling-1.6",
		Seconds:     5,
		AspectRatio: "16:9",
	}).Return(&relay.Envelope{
		ID:            "task_123",
		Object:        "video.generation",
		Model:         "kling-1.6",
		UpstreamModel: "kling-v1-6",
		Status:        "pending",
	}, nil)

	rec := postJSON(t, h.CreateVideo, `{"prompt":"a cat","model":"kling-1.6","seconds":5,"aspect_ratio":"16:9"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env relay.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "task_123", env.ID)
	assert.Equal(t, "pending", env.Status)
	submitter.AssertExpectations(t)
}

func TestCreateVideo_RelayFailureStillReturns200(t *testing.T) {
	h, submitter, _ := newTestHandlers(t)

	rerr := &relay.Error{
		Kind:    relay.KindUpstreamHTTP,
		Code:    "invalid_key",
		Message: "bad key",
		Status:  http.StatusUnauthorized,
	}
	submitter.On("Submit", mock.Anything, mock.Anything).Return(&relay.Envelope{
		Object: "video.generation",
		Status: "error",
		Error:  rerr.API(),
	}, rerr)

	rec := postJSON(t, h.CreateVideo, `{"prompt":"a cat"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env relay.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "error", env.Status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid_key", env.Error.Code)
	assert.Equal(t, http.StatusUnauthorized, env.Error.Status)
}

func TestCreateVideo_NilEnvelope(t *testing.T) {
	h, submitter, _ := newTestHandlers(t)
	submitter.On("Submit", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	rec := postJSON(t, h.CreateVideo, `{"prompt":"a cat"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env relay.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "error", env.Status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "internal_error", env.Error.Code)
}

func TestCreateVideo_InvalidJSON(t *testing.T) {
	h, submitter, _ := newTestHandlers(t)

	rec := postJSON(t, h.CreateVideo, `{invalid`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "INVALID_JSON", resp.Code)
	submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestCreateVideo_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing prompt", `{"model":"kling-1.6"}`},
		{"blank prompt", `{"prompt":"   "}`},
		{"bad aspect ratio", `{"prompt":"p","aspect_ratio":"4:3"}`},
		{"negative seconds", `{"prompt":"p","seconds":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, submitter, _ := newTestHandlers(t)

			rec := postJSON(t, h.CreateVideo, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "VALIDATION_ERROR", resp.Code)
			submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
		})
	}
}

func TestGetTask_Success(t *testing.T) {
	h, _, statuses := newTestHandlers(t)
	router := NewRouter(h, testLogger(), DefaultConfig())

	statuses.On("Status", mock.Anything, "task_123").Return(task.Status{
		ID:       "task_123",
		State:    task.StateProcessing,
		Progress: 40,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/videos/tasks/task_123", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var st task.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, task.StateProcessing, st.State)
	assert.Equal(t, 40, st.Progress)
	statuses.AssertExpectations(t)
}

func TestGetTask_RelayErrorStillReturns200(t *testing.T) {
	h, _, statuses := newTestHandlers(t)
	router := NewRouter(h, testLogger(), DefaultConfig())

	statuses.On("Status", mock.Anything, "missing").Return(task.Status{
		ID:    "missing",
		State: task.StateNotFound,
		Error: "Not Found",
	}, &relay.Error{Kind: relay.KindNotFound, Status: http.StatusNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/videos/tasks/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var st task.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, task.StateNotFound, st.State)
	assert.Equal(t, "missing", st.ID)
}

func TestGetTask_RelayErrorCarriesKind(t *testing.T) {
	h, _, statuses := newTestHandlers(t)
	router := NewRouter(h, testLogger(), DefaultConfig())

	statuses.On("Status", mock.Anything, "t1").Return(task.Status{
		ID:    "t1",
		State: task.StateError,
		Error: "Bad Gateway",
	}, &relay.Error{Kind: relay.KindUpstreamHTTP, Status: http.StatusBadGateway})

	req := httptest.NewRequest(http.MethodGet, "/api/videos/tasks/t1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var st task.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, task.StateError, st.State)
	assert.Equal(t, string(relay.KindUpstreamHTTP), st.ErrorKind)
}

func TestGetTask_BlankID(t *testing.T) {
	h, _, statuses := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/videos/tasks/%20", nil)
	req.SetPathValue("taskId", " ")
	rec := httptest.NewRecorder()
	h.GetTask(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var st task.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, task.StateError, st.State)
	assert.Equal(t, string(relay.KindInvalidRequest), st.ErrorKind)
	statuses.AssertNotCalled(t, "Status", mock.Anything, mock.Anything)
}

func TestListModels(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	rec := httptest.NewRecorder()
	h.ListModels(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ModelListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "list", resp.Object)
	assert.Equal(t, relay.DefaultModelID, resp.Default)
	ids := make([]string, 0, len(resp.Data))
	for _, m := range resp.Data {
		ids = append(ids, m.ID)
	}
	assert.Contains(t, ids, "kling-1.6")
	assert.Contains(t, ids, "default")
}

func TestRouter_Integration(t *testing.T) {
	h, submitter, _ := newTestHandlers(t)
	router := NewRouter(h, testLogger(), DefaultConfig())

	submitter.On("Submit", mock.Anything, mock.Anything).Return(&relay.Envelope{ID: "t1", Status: "pending"}, nil)

	// Health
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Create
	req = httptest.NewRequest(http.MethodPost, "/api/videos/text2video", bytes.NewReader([]byte(`{"prompt":"p"}`)))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	// Wrong method
	req = httptest.NewRequest(http.MethodGet, "/api/videos/text2video", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
