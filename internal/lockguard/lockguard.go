// Package lockguard manages the shared lock indicator consulted by the
// external acquisition tool. The indicator is a single-byte durable flag file
// ("1" busy, "0" free) that survives crashes of either process, which is
// exactly why it can wedge: a tool killed mid-run leaves it busy and every
// later run refuses to start. The orchestrator force-resets it on stop, on
// anomaly detection, and defensively before each launch.
package lockguard

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
)

const (
	busyByte = '1'
	freeByte = '0'
)

// Guard owns the indicator file path.
type Guard struct {
	path string
}

// New returns a Guard for the given indicator path.
func New(path string) *Guard {
	return &Guard{path: path}
}

// Path returns the indicator file location.
func (g *Guard) Path() string {
	return g.path
}

// IsBusy reports whether the indicator currently marks the tool as running.
// A missing file means free.
func (g *Guard) IsBusy() (bool, error) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == busyByte, nil
}

// MarkBusy flags the tool as running.
func (g *Guard) MarkBusy() error {
	return g.write(busyByte)
}

// Reset force-marks the indicator as free.
func (g *Guard) Reset() error {
	return g.write(freeByte)
}

func (g *Guard) write(flag byte) error {
	if dir := filepath.Dir(g.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(g.path, []byte{flag}, 0o644)
}
