package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/text2video-api/internal/catalog"
	"github.com/maauso/text2video-api/internal/client"
	"github.com/maauso/text2video-api/internal/poller"
	"github.com/maauso/text2video-api/internal/relay"
	"github.com/maauso/text2video-api/internal/upstream"
)

// fakeProvider accepts one submission and then reports 40% followed by completion.
type fakeProvider struct {
	mu       sync.Mutex
	payload  map[string]any
	statuses int
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/videos/text2video":
		_ = json.NewDecoder(r.Body).Decode(&p.payload)
		_, _ = w.Write([]byte(`{"id":"task_123","status":"pending"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v1/videos/tasks/task_123":
		p.statuses++
		if p.statuses == 1 {
			_, _ = w.Write([]byte(`{"status":"processing","progress":40}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"completed","video_url":"https://cdn/x.mp4"}`))
	default:
		http.NotFound(w, r)
	}
}

func TestEndToEnd_SubmitAndPoll(t *testing.T) {
	provider := &fakeProvider{}
	upstreamServer := httptest.NewServer(provider)
	defer upstreamServer.Close()

	up, err := upstream.NewClient(upstreamServer.URL+"/v1/videos/text2video",
		upstream.WithStatusURL(upstreamServer.URL+"/v1/videos/tasks"))
	require.NoError(t, err)

	h := NewHandlers(
		relay.NewSubmitter(up, relay.DefaultConfig("sk-test"), testLogger()),
		relay.NewStatusRelay(up, "sk-test", testLogger(), relay.WithTerminalCache(time.Minute)),
		catalog.Default(),
		testLogger(),
	)
	api := httptest.NewServer(NewRouter(h, testLogger(), DefaultConfig()))
	defer api.Close()

	c, err := client.NewClient(api.URL)
	require.NoError(t, err)

	ctx := context.Background()
	env, err := c.Submit(ctx, client.SubmitRequest{
		Prompt:      "a cat",
		Model:       "kling-1.6",
		Seconds:     5,
		AspectRatio: "16:9",
	})
	require.NoError(t, err)
	assert.Equal(t, "task_123", env.ID)
	assert.Equal(t, "pending", env.Status)
	assert.Equal(t, "kling-v1-6", provider.payload["model_name"])
	assert.Equal(t, "5", provider.payload["duration"])

	var mu sync.Mutex
	var progress []int
	p, err := poller.New(c,
		poller.WithInterval(time.Millisecond),
		poller.WithObserver(func(u poller.Update) {
			mu.Lock()
			progress = append(progress, u.Progress)
			mu.Unlock()
		}),
	)
	require.NoError(t, err)

	run, err := p.Start(ctx, env.ID)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	st, err := run.Wait(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.mp4", st.VideoURL)
	assert.Equal(t, poller.StateCompleted, run.Snapshot().State)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{40, 100}, progress)
}
