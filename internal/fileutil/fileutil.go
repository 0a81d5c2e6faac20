// Package fileutil locates job artifacts and guards filesystem cleanup so the
// orchestrator never deletes outside the configured output root.
package fileutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".ts":   {},
	".avi":  {},
	".m4v":  {},
	".mov":  {},
	".wmv":  {},
	".flv":  {},
	".webm": {},
}

// IsVideoFile reports whether the file name carries a known video extension.
func IsVideoFile(name string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// FindArtifact returns the job's output file inside dir. The conventional
// name <key>.mp4 wins when present; otherwise the largest file with a known
// video extension is taken. Returns empty string when nothing qualifies.
func FindArtifact(dir, key string) string {
	preferred := filepath.Join(dir, key+".mp4")
	if info, err := os.Stat(preferred); err == nil && !info.IsDir() {
		return preferred
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestSize int64 = -1
	for _, entry := range entries {
		if entry.IsDir() || !IsVideoFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(dir, entry.Name())
			bestSize = info.Size()
		}
	}
	return best
}

// WaitForArtifact polls for the job artifact until the deadline passes. The
// external tool may still be flushing its container rewrite when the process
// exits, so a short bounded wait avoids declaring spurious failures.
func WaitForArtifact(ctx context.Context, dir, key string, timeout, interval time.Duration) string {
	deadline := time.Now().Add(timeout)
	for {
		if path := FindArtifact(dir, key); path != "" {
			return path
		}
		if time.Now().After(deadline) {
			return ""
		}
		select {
		case <-ctx.Done():
			return FindArtifact(dir, key)
		case <-time.After(interval):
		}
	}
}

// WithinRoot reports whether path sits strictly inside root after cleaning.
// Comparison is by path prefix with a separator boundary, so "/data/out-x"
// does not count as inside "/data/out".
func WithinRoot(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if root == "" || root == "." || root == string(filepath.Separator) {
		return false
	}
	if path == root {
		return false
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// ErrOutsideRoot reports a refusal to delete a directory outside the output root.
var ErrOutsideRoot = errors.New("refusing to remove path outside output root")

// RemoveTaskDir deletes a job's working directory, but only when it is
// provably inside root. Returns whether anything was removed.
func RemoveTaskDir(root, dir string) (bool, error) {
	if !WithinRoot(root, dir) {
		return false, ErrOutsideRoot
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, err
	}
	return true, nil
}
