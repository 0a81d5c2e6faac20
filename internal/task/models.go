package task

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a task.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	StatusStopped Status = "stopped"
)

var allStatuses = []Status{
	StatusQueued,
	StatusRunning,
	StatusDone,
	StatusError,
	StatusStopped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether the status ends a task's lifecycle.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusError, StatusStopped:
		return true
	default:
		return false
	}
}

// LogEntry is one retained line of task output.
type LogEntry struct {
	Seq  int64     `json:"seq"`
	Line string    `json:"line"`
	At   time.Time `json:"at"`
}

// Task tracks one acquisition request from enqueue to terminal state.
type Task struct {
	ID           string     `json:"task_id"`
	Key          string     `json:"key"`
	BatchID      string     `json:"batch_id,omitempty"`
	Status       Status     `json:"status"`
	Percent      int        `json:"percent"`
	Message      string     `json:"message"`
	PID          int        `json:"pid,omitempty"`
	ArtifactPath string     `json:"artifact_path,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Logs         []LogEntry `json:"logs,omitempty"`
	LogSeq       int64      `json:"log_seq"`
}

// Terminal reports whether the task has reached a terminal state.
func (t *Task) Terminal() bool {
	return t.Status.Terminal()
}

// Slim returns a copy without the log buffer, suitable for status responses.
func (t Task) Slim() Task {
	t.Logs = nil
	return t
}

// LogsAfter returns copies of retained log entries with Seq greater than seq.
func (t *Task) LogsAfter(seq int64) []LogEntry {
	var out []LogEntry
	for _, entry := range t.Logs {
		if entry.Seq > seq {
			out = append(out, entry)
		}
	}
	return out
}

func cloneTask(t *Task) Task {
	cp := *t
	if len(t.Logs) > 0 {
		cp.Logs = make([]LogEntry, len(t.Logs))
		copy(cp.Logs, t.Logs)
	}
	return cp
}
