// Package catalog holds the static table of selectable video models and the
// mapping from model IDs to the names the upstream provider expects.
package catalog

import (
	"errors"
	"sort"
)

// DefaultModelID is the key of the entry every unknown lookup falls back to.
const DefaultModelID = "default"

// DefaultDuration is used when a request does not carry a positive duration.
const DefaultDuration = 5

// ErrDefaultMissing is returned when a table has no DefaultModelID entry.
var ErrDefaultMissing = errors.New("catalog: default entry is required")

// Model describes one selectable video model.
type Model struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	MaxDuration   int    `json:"max_duration"`
	SupportsImage bool   `json:"supports_image"`
	Category      string `json:"category"`
}

// ClampDuration bounds seconds to (0, MaxDuration].
// Non-positive values become DefaultDuration before clamping.
func (m Model) ClampDuration(seconds int) int {
	if seconds <= 0 {
		seconds = DefaultDuration
	}
	if m.MaxDuration > 0 && seconds > m.MaxDuration {
		return m.MaxDuration
	}
	return seconds
}

// Catalog is a read-only set of models keyed by ID.
type Catalog struct {
	models map[string]Model
}

// New builds a Catalog. The models slice must contain a DefaultModelID entry.
func New(models []Model) (*Catalog, error) {
	c := &Catalog{models: make(map[string]Model, len(models))}
	for _, m := range models {
		c.models[m.ID] = m
	}
	if _, ok := c.models[DefaultModelID]; !ok {
		return nil, ErrDefaultMissing
	}
	return c, nil
}

// Lookup returns the model for id, or the default model when id is unknown.
func (c *Catalog) Lookup(id string) Model {
	if m, ok := c.models[id]; ok {
		return m
	}
	return c.models[DefaultModelID]
}

// Has reports whether id is a known model.
func (c *Catalog) Has(id string) bool {
	_, ok := c.models[id]
	return ok
}

// List returns all models sorted by ID.
func (c *Catalog) List() []Model {
	out := make([]Model, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DefaultModels is the built-in model table.
func DefaultModels() []Model {
	return []Model{
		{ID: "kling-1.6", DisplayName: "Kling 1.6", MaxDuration: 10, SupportsImage: true, Category: "kling"},
		{ID: "kling-1.5", DisplayName: "Kling 1.5", MaxDuration: 10, SupportsImage: true, Category: "kling"},
		{ID: DefaultModelID, DisplayName: "Default", MaxDuration: 10, SupportsImage: false, Category: "general"},
	}
}

// Default returns a Catalog built from DefaultModels.
func Default() *Catalog {
	c, err := New(DefaultModels())
	if err != nil {
		// DefaultModels always carries a default entry.
		panic(err)
	}
	return c
}
