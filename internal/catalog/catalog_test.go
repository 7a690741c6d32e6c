package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresDefault(t *testing.T) {
	_, err := New([]Model{{ID: "kling-1.6"}})
	require.ErrorIs(t, err, ErrDefaultMissing)
}

func TestCatalog_Lookup(t *testing.T) {
	c := Default()

	m := c.Lookup("kling-1.5")
	assert.Equal(t, "kling-1.5", m.ID)
	assert.True(t, m.SupportsImage)

	fallback := c.Lookup("does-not-exist")
	assert.Equal(t, DefaultModelID, fallback.ID)
	assert.False(t, c.Has("does-not-exist"))
	assert.True(t, c.Has("kling-1.6"))
}

func TestCatalog_List_Sorted(t *testing.T) {
	models := Default().List()
	require.Len(t, models, 3)
	assert.Equal(t, "default", models[0].ID)
	assert.Equal(t, "kling-1.5", models[1].ID)
	assert.Equal(t, "kling-1.6", models[2].ID)
}

func TestModel_ClampDuration(t *testing.T) {
	m := Model{ID: "x", MaxDuration: 10}

	tests := []struct {
		name    string
		seconds int
		want    int
	}{
		{"zero uses default", 0, DefaultDuration},
		{"negative uses default", -3, DefaultDuration},
		{"within range", 7, 7},
		{"at max", 10, 10},
		{"above max", 30, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.ClampDuration(tt.seconds))
		})
	}

	unbounded := Model{ID: "y"}
	assert.Equal(t, 60, unbounded.ClampDuration(60))
}

func TestMapping_ResolveKnownKeys(t *testing.T) {
	m := DefaultMapping()
	for key := range DefaultMappingTable() {
		assert.NotEmpty(t, m.Resolve(key), "key %q", key)
		assert.True(t, m.Known(key))
	}
	assert.Equal(t, "kling-v1-5", m.Resolve("kling-1.5"))
}

func TestMapping_ResolveUnknownKeysFallsBack(t *testing.T) {
	m := DefaultMapping()
	want := m.Resolve(DefaultModelID)

	for _, key := range []string{"", "  ", "unknown", "KLING-1.6", "kling-9"} {
		assert.Equal(t, want, m.Resolve(key), "key %q", key)
		assert.NotEmpty(t, m.Resolve(key))
	}
}

func TestNewMapping_RejectsEmptyDefault(t *testing.T) {
	_, err := NewMapping(map[string]string{"kling-1.6": "kling-v1-6", DefaultModelID: "  "})
	require.ErrorIs(t, err, ErrDefaultMissing)

	_, err = NewMapping(map[string]string{"kling-1.6": "kling-v1-6"})
	require.ErrorIs(t, err, ErrDefaultMissing)
}

func TestNewMapping_SideBySide(t *testing.T) {
	a, err := NewMapping(map[string]string{DefaultModelID: "alpha"})
	require.NoError(t, err)
	b, err := NewMapping(map[string]string{DefaultModelID: "beta", "kling-1.6": "beta-16"})
	require.NoError(t, err)

	assert.Equal(t, "alpha", a.Resolve("kling-1.6"))
	assert.Equal(t, "beta-16", b.Resolve("kling-1.6"))
}
