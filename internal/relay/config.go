package relay

import (
	"strings"

	"github.com/maauso/text2video-api/internal/catalog"
	"github.com/maauso/text2video-api/internal/task"
)

// Request defaults applied when the caller leaves a field empty.
const (
	DefaultModelID     = "kling-1.6"
	DefaultAspectRatio = "16:9"
)

// Generation modes echoed in the envelope.
const (
	ModeText2Video  = "text2video"
	ModeImage2Video = "image2video"
)

// DefaultTaskIDProbes are the submission response fields a task ID is taken from, in order.
var DefaultTaskIDProbes = [][]string{
	{"task_id"},
	{"id"},
	{"video_id"},
}

var placeholderCredentials = map[string]bool{
	"your_api_key":      true,
	"your_api_key_here": true,
	"your-api-key":      true,
	"your_token_here":   true,
	"changeme":          true,
	"change_me":         true,
	"placeholder":       true,
	"xxx":               true,
	"<api_key>":         true,
	"sk-xxx":            true,
}

// IsConfigured reports whether credential is present and not a known placeholder.
func IsConfigured(credential string) bool {
	c := strings.ToLower(strings.TrimSpace(credential))
	return c != "" && !placeholderCredentials[c]
}

// Config parameterizes a Submitter. Several Configs can coexist, so different
// mapping strategies can run side by side.
type Config struct {
	// Credential is the bearer token sent to the provider.
	Credential string
	// Catalog supplies model descriptors for duration clamping and image support.
	Catalog *catalog.Catalog
	// Mapping resolves model IDs to upstream model names.
	Mapping *catalog.Mapping
	// DefaultModel is used when a request names no model.
	DefaultModel string
	// TaskIDProbes are tried in order to extract the task ID.
	TaskIDProbes [][]string
	// VideoURLProbes are tried in order to extract a synchronously returned video URL.
	VideoURLProbes [][]string
}

// DefaultConfig returns a Config using the built-in tables.
func DefaultConfig(credential string) Config {
	return Config{
		Credential:     credential,
		Catalog:        catalog.Default(),
		Mapping:        catalog.DefaultMapping(),
		DefaultModel:   DefaultModelID,
		TaskIDProbes:   DefaultTaskIDProbes,
		VideoURLProbes: task.VideoURLProbes,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig(c.Credential)
	if c.Catalog == nil {
		c.Catalog = d.Catalog
	}
	if c.Mapping == nil {
		c.Mapping = d.Mapping
	}
	if c.DefaultModel == "" {
		c.DefaultModel = d.DefaultModel
	}
	if len(c.TaskIDProbes) == 0 {
		c.TaskIDProbes = d.TaskIDProbes
	}
	if len(c.VideoURLProbes) == 0 {
		c.VideoURLProbes = d.VideoURLProbes
	}
	return c
}
