// Package joberr classifies job failures with sentinel markers so callers
// can map them onto terminal task states without parsing message text.
package joberr

import (
	"errors"
	"fmt"
	"strings"

	"nassav/internal/task"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrLaunch        = errors.New("launch error")
	ErrExternalTool  = errors.New("external tool error")
	ErrLockHeld      = errors.New("lock held")
	ErrNotFound      = errors.New("not found")
	ErrStopped       = errors.New("stopped")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later status classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Status maps a classified job error to the terminal state the worker
// should record for the task.
func Status(err error) task.Status {
	if errors.Is(err, ErrStopped) {
		return task.StatusStopped
	}
	return task.StatusError
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "job failure"
	}
	return strings.Join(parts, ": ")
}
