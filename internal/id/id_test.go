package id

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	// Check format
	if !strings.HasPrefix(id, "task_") {
		t.Errorf("expected ID to start with 'task_', got %s", id)
	}

	// Check uniqueness
	id2 := Generate()
	if id == id2 {
		t.Error("expected different IDs for consecutive calls")
	}
}

func TestGenerate_Timestamp(t *testing.T) {
	now := time.UnixMilli(1701432000123)
	id := generateAt(now)

	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d in %s", len(parts), id)
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		t.Fatalf("timestamp part is not numeric: %v", err)
	}
	if ms != 1701432000123 {
		t.Errorf("expected timestamp 1701432000123, got %d", ms)
	}
	if len(parts[2]) != 8 {
		t.Errorf("expected 8-char random suffix, got %q", parts[2])
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestIsGenerated(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{Generate(), true},
		{"task_123", false},
		{"abc-123", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := IsGenerated(tt.id); got != tt.want {
				t.Errorf("IsGenerated(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}
