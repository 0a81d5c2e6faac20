// Package orchestrator owns the job queue, the single worker goroutine, and
// the generation token that arbitrates cancellation. It is the only writer
// of the "one external process at a time" guarantee.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"nassav/internal/config"
	"nassav/internal/ident"
	"nassav/internal/lockguard"
	"nassav/internal/logging"
	"nassav/internal/runner"
	"nassav/internal/task"
)

// ErrAlreadyRunning reports a second Start on a live orchestrator.
var ErrAlreadyRunning = errors.New("orchestrator already running")

// EnqueueResult describes an accepted enqueue request.
type EnqueueResult struct {
	BatchID string   `json:"batch_id"`
	TaskIDs []string `json:"task_ids"`
	Count   int      `json:"count"`
}

// StopResult describes the effect of a stop request.
type StopResult struct {
	WasRunning    bool   `json:"was_running"`
	StoppedTaskID string `json:"stopped_task_id,omitempty"`
	Cleared       int    `json:"cleared"`
	DirRemoved    bool   `json:"dir_removed"`
}

// Status is a point-in-time view of the worker and queue.
type Status struct {
	Running       bool   `json:"running"`
	CurrentTaskID string `json:"current_task_id,omitempty"`
	QueueLength   int    `json:"queue_length"`
}

// Orchestrator drains a FIFO queue of task ids through one worker. A stop
// request bumps the generation token; jobs compare their captured token
// against it to decide whether their output still matters.
type Orchestrator struct {
	cfg    *config.Config
	store  *task.Store
	runner *runner.Runner
	lock   *lockguard.Guard
	logger *slog.Logger

	mu         sync.Mutex
	pending    []string
	generation uint64
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	wake       chan struct{}
}

// New constructs an orchestrator.
func New(cfg *config.Config, store *task.Store, r *runner.Runner, lock *lockguard.Guard, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:    cfg,
		store:  store,
		runner: r,
		lock:   lock,
		logger: logging.NewComponentLogger(logger, "orchestrator"),
		wake:   make(chan struct{}, 1),
	}
}

// Start launches the worker goroutine.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true
	o.wg.Add(1)
	o.mu.Unlock()

	go o.worker(runCtx)
	return nil
}

// Stop terminates the worker and waits for the in-flight job to settle. The
// queue itself is left intact; use StopAll to abandon queued work.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.cancel = nil
	o.running = false
	o.mu.Unlock()

	cancel()
	o.runner.Interrupt()
	o.wg.Wait()
}

// Enqueue normalizes input (a single key or a newline-separated batch),
// creates one queued task per unique key, and wakes the worker. Input order
// is preserved.
func (o *Orchestrator) Enqueue(input string) (EnqueueResult, error) {
	keys, err := ident.NormalizeBatch(input)
	if err != nil {
		return EnqueueResult{}, err
	}

	batchID := strings.ReplaceAll(uuid.NewString(), "-", "")
	result := EnqueueResult{BatchID: batchID, Count: len(keys)}

	for _, key := range keys {
		rec := o.store.Create(key, batchID)
		result.TaskIDs = append(result.TaskIDs, rec.ID)
		o.mu.Lock()
		o.pending = append(o.pending, rec.ID)
		o.mu.Unlock()
		o.logger.Info("task enqueued",
			logging.String(logging.FieldTaskID, rec.ID),
			logging.String(logging.FieldKey, key),
			logging.String("batch_id", batchID))
	}

	o.signalWake()
	return result, nil
}

// StopAll abandons everything: it bumps the generation token so the in-flight
// job (if any) sees itself stale, signals the live process group, marks every
// queued task stopped, and resets the shared lock indicator. Idempotent.
func (o *Orchestrator) StopAll() StopResult {
	o.mu.Lock()
	o.generation++
	drained := o.pending
	o.pending = nil
	o.mu.Unlock()

	currentID := o.store.Current()
	result := StopResult{
		WasRunning:    currentID != "",
		StoppedTaskID: currentID,
		Cleared:       len(drained),
	}

	o.runner.Interrupt()

	for _, id := range drained {
		o.store.Update(id, func(t *task.Task) {
			t.Status = task.StatusStopped
			t.Message = "stopped before start"
		})
	}

	if err := o.lock.Reset(); err != nil {
		o.logger.Warn("lock indicator reset failed", logging.Error(err))
	}

	if currentID != "" {
		result.DirRemoved = o.awaitStopped(currentID)
	}

	o.logger.Info("stop completed",
		logging.Bool("was_running", result.WasRunning),
		logging.Int("cleared", result.Cleared))
	return result
}

// Status reports the worker state without blocking on the queue.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	queueLen := len(o.pending)
	running := o.running
	o.mu.Unlock()
	return Status{
		Running:       running,
		CurrentTaskID: o.store.Current(),
		QueueLength:   queueLen,
	}
}

// Generation returns the live token value.
func (o *Orchestrator) Generation() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation
}

func (o *Orchestrator) worker(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.wake:
		}
		for {
			if ctx.Err() != nil {
				return
			}
			id, gen, ok := o.dequeue()
			if !ok {
				break
			}
			o.runJob(ctx, id, gen)
		}
	}
}

// runJob executes one task, absorbing panics so a single bad job can never
// take down the worker loop.
func (o *Orchestrator) runJob(ctx context.Context, id string, gen uint64) {
	o.store.SetCurrent(id)
	defer o.store.SetCurrent("")

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("job panicked", logging.String(logging.FieldTaskID, id), logging.Any("panic", r))
			o.store.AppendLog(id, fmt.Sprintf("internal error: %v", r))
			o.store.Update(id, func(t *task.Task) {
				t.Status = task.StatusError
				t.Message = "internal error"
			})
		}
	}()

	alive := func() bool {
		o.mu.Lock()
		defer o.mu.Unlock()
		return o.generation == gen
	}
	if err := o.runner.Run(ctx, id, alive); err != nil {
		o.logger.Error("job failed to run", logging.String(logging.FieldTaskID, id), logging.Error(err))
		o.store.Update(id, func(t *task.Task) {
			t.Status = task.StatusError
			t.Message = err.Error()
		})
	}
}

func (o *Orchestrator) dequeue() (string, uint64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for len(o.pending) > 0 {
		id := o.pending[0]
		o.pending = o.pending[1:]
		rec, ok := o.store.Get(id)
		if !ok || rec.Terminal() {
			// Stopped while queued; nothing to run.
			continue
		}
		return id, o.generation, true
	}
	return "", 0, false
}

func (o *Orchestrator) signalWake() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// awaitStopped waits for the interrupted task to settle and reports whether
// its working directory is gone. Bounded by the grace period plus a margin
// so a wedged child cannot hang the stop request forever.
func (o *Orchestrator) awaitStopped(id string) bool {
	deadline := time.Now().Add(time.Duration(o.cfg.Tool.GracePeriod)*time.Second + 10*time.Second)
	for time.Now().Before(deadline) {
		rec, ok := o.store.Get(id)
		if !ok {
			return false
		}
		if rec.Terminal() {
			_, err := os.Stat(o.cfg.TaskDir(rec.Key))
			return os.IsNotExist(err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	o.logger.Warn("interrupted task did not settle before deadline", logging.String(logging.FieldTaskID, id))
	return false
}
