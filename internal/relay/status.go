package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/maauso/text2video-api/internal/task"
	"github.com/maauso/text2video-api/internal/upstream"
)

// StatusRelay queries the provider for a task and normalizes the answer.
type StatusRelay struct {
	client     upstream.Client
	credential string
	logger     *slog.Logger
	terminal   *gocache.Cache
}

// StatusOption is a function that configures a StatusRelay.
type StatusOption func(*StatusRelay)

// WithTerminalCache keeps completed and failed statuses for ttl, so repeated
// queries for a finished task are answered without contacting the provider.
// A non-positive ttl disables the cache.
func WithTerminalCache(ttl time.Duration) StatusOption {
	return func(r *StatusRelay) {
		if ttl > 0 {
			r.terminal = gocache.New(ttl, 2*ttl)
		}
	}
}

// NewStatusRelay creates a StatusRelay authenticating with credential.
func NewStatusRelay(client upstream.Client, credential string, logger *slog.Logger, opts ...StatusOption) *StatusRelay {
	if logger == nil {
		logger = slog.Default()
	}
	r := &StatusRelay{
		client:     client,
		credential: credential,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Status returns the normalized status of taskID. The returned Status is always
// usable: relay-level failures yield StateError (or StateNotFound) together with a *Error.
func (r *StatusRelay) Status(ctx context.Context, taskID string) (task.Status, error) {
	if r.terminal != nil {
		if cached, ok := r.terminal.Get(taskID); ok {
			return cached.(task.Status), nil
		}
	}

	if !IsConfigured(r.credential) {
		rerr := &Error{
			Kind:    KindConfiguration,
			Code:    "missing_token",
			Message: "status token is not configured",
			Status:  http.StatusInternalServerError,
		}
		return task.Status{ID: taskID, State: task.StateError, Error: rerr.Message, ErrorKind: string(rerr.Kind)}, rerr
	}

	resp, err := r.client.Status(ctx, r.credential, taskID)
	if err != nil {
		return r.failure(taskID, err)
	}

	st := task.Normalize(taskID, resp.Body)
	if st.State == task.StateUnknown {
		r.logger.Debug("unrecognized task status",
			slog.String("task_id", taskID),
			slog.String("upstream_status", st.UpstreamStatus),
		)
	}
	if st.State.IsTerminal() && r.terminal != nil {
		r.terminal.SetDefault(taskID, st)
	}
	return st, nil
}

func (r *StatusRelay) failure(taskID string, err error) (task.Status, error) {
	if he, ok := upstream.AsHTTPError(err); ok {
		st := task.Status{ID: taskID, State: task.StateError, Raw: task.RawJSON(he.Body)}
		rerr := &Error{
			Kind:   KindUpstreamHTTP,
			Code:   string(KindUpstreamHTTP),
			Status: he.StatusCode,
			Body:   st.Raw,
			Err:    err,
		}
		if errors.Is(err, upstream.ErrNotFound) {
			st.State = task.StateNotFound
			rerr.Kind = KindNotFound
			rerr.Code = string(KindNotFound)
		}
		_, rerr.Message = parseErrorBody(he.Body)
		if rerr.Message == "" {
			rerr.Message = http.StatusText(he.StatusCode)
		}
		st.Error = rerr.Message
		st.ErrorKind = string(rerr.Kind)
		r.logger.Warn("task status query rejected",
			slog.String("task_id", taskID),
			slog.Int("status", he.StatusCode),
		)
		return st, rerr
	}

	rerr := &Error{
		Kind:    KindTransport,
		Code:    string(KindTransport),
		Message: err.Error(),
		Status:  http.StatusBadGateway,
		Err:     err,
	}
	r.logger.Warn("task status query failed",
		slog.String("task_id", taskID),
		slog.String("error", err.Error()),
	)
	return task.Status{ID: taskID, State: task.StateError, Error: rerr.Message, ErrorKind: string(rerr.Kind)}, rerr
}
