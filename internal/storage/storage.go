// Package storage archives finished videos on local disk or in S3.
package storage

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

// Archive stores a finished video and reports where it ended up.
type Archive interface {
	// Save writes data under name and returns its location (a path or URL).
	Save(ctx context.Context, name string, data io.Reader) (location string, err error)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// VideoName returns a file name for the video of taskID.
func VideoName(taskID string) string {
	name := unsafeNameChars.ReplaceAllString(strings.TrimSpace(taskID), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "video"
	}
	return name + ".mp4"
}

// cleanName strips any directory part so a name cannot escape the archive root.
func cleanName(name string) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		return ""
	}
	return base
}
