package ipc

import (
	"nassav/internal/orchestrator"
	"nassav/internal/task"
)

// FetchRequest enqueues one asset key or a newline-separated batch.
type FetchRequest struct {
	Keys string `json:"keys"`
}

// FetchResponse reports the accepted batch.
type FetchResponse struct {
	Result orchestrator.EnqueueResult `json:"result"`
}

// StopRequest abandons the running job and the pending queue.
type StopRequest struct{}

// StopResponse reports the effect of the stop.
type StopResponse struct {
	Result orchestrator.StopResult `json:"result"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon and worker status.
type StatusResponse struct {
	Running       bool                `json:"running"`
	PID           int                 `json:"pid"`
	Orchestrator  orchestrator.Status `json:"orchestrator"`
	StateFilePath string              `json:"state_file"`
	LockFilePath  string              `json:"lock_file"`
}

// TaskListRequest lists all known tasks.
type TaskListRequest struct{}

// TaskListResponse contains slim task snapshots in creation order.
type TaskListResponse struct {
	Tasks []task.Task `json:"tasks"`
}

// TaskDescribeRequest fetches one task by id.
type TaskDescribeRequest struct {
	ID string `json:"id"`
}

// TaskDescribeResponse contains a single slim task snapshot.
type TaskDescribeResponse struct {
	Task task.Task `json:"task"`
}

// TaskLogsRequest fetches retained log entries newer than AfterSeq.
type TaskLogsRequest struct {
	ID       string `json:"id"`
	AfterSeq int64  `json:"after_seq"`
}

// TaskLogsResponse contains log entries in sequence order.
type TaskLogsResponse struct {
	Entries []task.LogEntry `json:"entries"`
}
