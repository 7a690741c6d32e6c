// Package id provides locally unique identifiers for tasks the provider did not name.
package id

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefix is prepended to every generated task ID.
const Prefix = "task_"

// Generate creates a new fallback task ID.
// Format: task_<unix-millis>_<random>
// Example: task_1701432000123_a1b2c3d4
func Generate() string {
	return generateAt(time.Now())
}

func generateAt(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%d_%s", Prefix, now.UnixMilli(), random)
}

// IsGenerated reports whether taskID was produced by Generate rather than the provider.
func IsGenerated(taskID string) bool {
	return strings.HasPrefix(taskID, Prefix) && strings.Count(taskID, "_") == 2
}
