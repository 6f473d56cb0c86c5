// Package paths resolves the on-disk media layout shared by the API server
// and the simulator.
package paths

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	SnapshotsDir  = "snapshots"
	ClipsDir      = "clips"
	VideosDir     = "videos"
	RecordingsDir = "recordings"

	// MediaPrefix is the URL prefix media files are served under.
	MediaPrefix = "/media/"
)

// EnsureMediaDirs creates the media root and its standard subdirectories.
func EnsureMediaDirs(root string) error {
	for _, sub := range []string{SnapshotsDir, ClipsDir, VideosDir, RecordingsDir} {
		p := filepath.Join(root, sub)
		if err := os.MkdirAll(p, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", p, err)
		}
	}
	return nil
}

// SnapshotRel is the media-relative path of an event's snapshot. It always
// uses forward slashes since it is stored and turned into a URL.
func SnapshotRel(eventID string) string {
	return path.Join(SnapshotsDir, eventID+".jpg")
}

// MediaURL maps a stored media-relative path to its public URL. Empty input
// yields nil.
func MediaURL(rel *string) *string {
	if rel == nil || *rel == "" {
		return nil
	}
	u := MediaPrefix + strings.TrimLeft(filepath.ToSlash(*rel), "/")
	return &u
}

// SafeJoin joins path elements and ensures the result is within the base directory (no traversal).
func SafeJoin(base string, elements ...string) (string, error) {
	for _, el := range elements {
		if filepath.IsAbs(el) || strings.HasPrefix(el, `\\`) || strings.HasPrefix(el, "/") {
			return "", fmt.Errorf("path traversal attempt detected: absolute path not allowed in elements: %s", el)
		}
	}
	joined := filepath.Join(append([]string{base}, elements...)...)

	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}

	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}

	if absJoined != absBase && !strings.HasPrefix(absJoined, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt detected: %s is outside %s", absJoined, absBase)
	}

	return absJoined, nil
}
