// Package persist stores the task table as a JSON snapshot on disk so a
// daemon restart can report on previously observed tasks.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"nassav/internal/logging"
	"nassav/internal/task"
)

// Persister writes store snapshots to a single JSON file. Writes are
// serialized and atomic: the snapshot lands in a temp file first and is
// renamed over the previous one.
type Persister struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// New constructs a persister targeting path.
func New(path string, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Persister{
		path:   path,
		logger: logging.NewComponentLogger(logger, "persist"),
	}
}

// Path returns the snapshot file path.
func (p *Persister) Path() string {
	return p.path
}

// Save merges snap over the snapshot already on disk and writes the result.
// Tasks present on disk but absent from snap are kept, so records from an
// earlier run survive until a fresh process imports and re-exports them.
func (p *Persister) Save(snap task.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, err := p.loadLocked()
	if err != nil {
		// A corrupt or unreadable file must not wedge the daemon; start over.
		p.logger.Warn("discarding unreadable snapshot", logging.Error(err))
		existing = task.Snapshot{}
	}

	merged := task.Snapshot{
		CurrentTaskID: snap.CurrentTaskID,
		Tasks:         make(map[string]task.Task, len(existing.Tasks)+len(snap.Tasks)),
	}
	for id, rec := range existing.Tasks {
		merged.Tasks[id] = rec
	}
	for id, rec := range snap.Tasks {
		merged.Tasks[id] = rec
	}

	return p.writeLocked(merged)
}

// Load reads the snapshot from disk. A missing file yields an empty snapshot.
func (p *Persister) Load() (task.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked()
}

func (p *Persister) loadLocked() (task.Snapshot, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return task.Snapshot{Tasks: map[string]task.Task{}}, nil
	}
	if err != nil {
		return task.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap task.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return task.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", p.path, err)
	}
	if snap.Tasks == nil {
		snap.Tasks = map[string]task.Task{}
	}
	return snap, nil
}

func (p *Persister) writeLocked(snap task.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
