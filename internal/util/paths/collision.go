// Package paths provides utilities for file path handling in downloads.
package paths

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// DownloadTarget represents a remote object being materialized on disk.
// Both the CLI load commands and the node runners build these so collision
// handling stays identical across entry points.
type DownloadTarget struct {
	Key       string // Remote object key relative to the destination prefix
	Name      string // Basename the file would naturally be written as
	LocalPath string // Full local destination path
	Size      int64  // Object size in bytes, 0 when unknown
}

// ResolveCollisions takes a list of download targets and ensures all
// LocalPaths are unique. When multiple targets share the same LocalPath,
// each gets a short digest of its remote key appended before the extension.
//
// Example: keys "a/frame.png" and "b/frame.png" both landing on frame.png
// become:
//   - frame_89abcdef.png
//   - frame_0123cdef.png
//
// Identical keys listed twice keep the same path; the second write replaces
// the first with identical content.
//
// Returns the modified list (same slice, modified in place) and count of
// targets that were involved in collisions.
func ResolveCollisions(targets []DownloadTarget) ([]DownloadTarget, int) {
	if len(targets) == 0 {
		return targets, 0
	}

	pathToIndices := make(map[string][]int)
	for i, t := range targets {
		pathToIndices[t.LocalPath] = append(pathToIndices[t.LocalPath], i)
	}

	collisionCount := 0
	for path, indices := range pathToIndices {
		if len(indices) <= 1 {
			continue
		}

		// Distinct keys collided on the same local name. Append a key digest
		// before the extension: "frame.png" -> "frame_89abcdef.png".
		collisionCount += len(indices)
		for _, idx := range indices {
			t := &targets[idx]
			ext := filepath.Ext(path)
			base := path[:len(path)-len(ext)]
			t.LocalPath = fmt.Sprintf("%s_%s%s", base, KeyDigest(t.Key), ext)
		}
	}

	return targets, collisionCount
}

// KeyDigest returns a short stable hex digest of a remote key, suitable for
// embedding in a filename.
func KeyDigest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:4])
}
