// Package stream exposes per-task pull streams: observers poll the task
// store at a fixed cadence and receive progress snapshots or newly appended
// log entries until the task reaches a terminal state. The transport (SSE,
// RPC, channel) is an adapter on top of these channels.
package stream

import (
	"context"
	"errors"
	"time"

	"nassav/internal/task"
)

// ErrUnknownTask reports a subscription against an id the store has never seen.
var ErrUnknownTask = errors.New("unknown task")

// Progress returns a channel of deduplicated task snapshots (without log
// buffers), emitted at most once per interval. The channel closes after the
// terminal snapshot has been delivered, or when ctx is done.
func Progress(ctx context.Context, store *task.Store, id string, interval time.Duration) (<-chan task.Task, error) {
	if _, ok := store.Get(id); !ok {
		return nil, ErrUnknownTask
	}
	ch := make(chan task.Task, 1)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last task.Task
		sent := false
		for {
			rec, ok := store.Get(id)
			if !ok {
				return
			}
			snap := rec.Slim()
			if !sent || progressChanged(last, snap) {
				select {
				case ch <- snap:
				case <-ctx.Done():
					return
				}
				last = snap
				sent = true
			}
			if snap.Status.Terminal() {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Logs returns a channel of log entries in sequence order, each emitted at
// most once. After the task goes terminal one final fetch flushes trailing
// lines written as the process exited, then the channel closes.
func Logs(ctx context.Context, store *task.Store, id string, interval time.Duration) (<-chan task.LogEntry, error) {
	if _, ok := store.Get(id); !ok {
		return nil, ErrUnknownTask
	}
	ch := make(chan task.LogEntry, 16)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastSeq int64
		for {
			rec, ok := store.Get(id)
			if !ok {
				return
			}
			var done bool
			lastSeq, done = emitAfter(ctx, ch, &rec, lastSeq)
			if done {
				return
			}
			if rec.Terminal() {
				// Trailing output may land between the terminal transition
				// and the snapshot above; flush once more before closing.
				if final, ok := store.Get(id); ok {
					emitAfter(ctx, ch, &final, lastSeq)
				}
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func emitAfter(ctx context.Context, ch chan<- task.LogEntry, rec *task.Task, lastSeq int64) (int64, bool) {
	for _, entry := range rec.LogsAfter(lastSeq) {
		select {
		case ch <- entry:
			lastSeq = entry.Seq
		case <-ctx.Done():
			return lastSeq, true
		}
	}
	return lastSeq, false
}

func progressChanged(prev, next task.Task) bool {
	return prev.Status != next.Status ||
		prev.Percent != next.Percent ||
		prev.Message != next.Message ||
		!prev.UpdatedAt.Equal(next.UpdatedAt)
}
