package catalog

import "strings"

// Mapping translates model IDs into upstream model names.
// Resolve is total: unknown or empty keys resolve to the DefaultModelID entry.
type Mapping struct {
	names map[string]string
}

// NewMapping builds a Mapping from a table. A table without a usable default
// entry returns ErrDefaultMissing, so a constructed Mapping can never resolve to "".
func NewMapping(table map[string]string) (*Mapping, error) {
	names := make(map[string]string, len(table))
	for k, v := range table {
		if v = strings.TrimSpace(v); v != "" {
			names[k] = v
		}
	}
	if names[DefaultModelID] == "" {
		return nil, ErrDefaultMissing
	}
	return &Mapping{names: names}, nil
}

// Resolve returns the upstream name for id.
func (m *Mapping) Resolve(id string) string {
	if name, ok := m.names[strings.TrimSpace(id)]; ok {
		return name
	}
	return m.names[DefaultModelID]
}

// Known reports whether id has its own entry rather than using the fallback.
func (m *Mapping) Known(id string) bool {
	_, ok := m.names[strings.TrimSpace(id)]
	return ok
}

// DefaultMappingTable is the built-in model-name table.
func DefaultMappingTable() map[string]string {
	return map[string]string{
		"kling-1.6":    "kling-v1-6",
		"kling-1.5":    "kling-v1-5",
		DefaultModelID: "kling-v1-6",
	}
}

// DefaultMapping returns a Mapping built from DefaultMappingTable.
func DefaultMapping() *Mapping {
	m, err := NewMapping(DefaultMappingTable())
	if err != nil {
		panic(err)
	}
	return m
}
