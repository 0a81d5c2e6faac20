package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"nassav/internal/config"
	"nassav/internal/lockguard"
	"nassav/internal/logging"
	"nassav/internal/orchestrator"
	"nassav/internal/persist"
	"nassav/internal/runner"
	"nassav/internal/task"
)

// ErrAlreadyRunning reports that another daemon instance holds the lock.
var ErrAlreadyRunning = errors.New("another nassav daemon instance is already running")

// Daemon wires the task store, orchestrator, persister, and serving surfaces
// together and enforces single-instance execution via a file lock.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *task.Store
	orch      *orchestrator.Orchestrator
	persister *persist.Persister

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool                `json:"running"`
	PID           int                 `json:"pid"`
	Orchestrator  orchestrator.Status `json:"orchestrator"`
	StateFilePath string              `json:"state_file"`
	LockFilePath  string              `json:"lock_file"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store := task.NewStore(cfg.Workflow.MaxLogLines)
	persister := persist.New(cfg.Paths.StateFile, logger)
	guard := lockguard.New(cfg.Paths.LockIndicator)
	run := runner.New(cfg, store, guard, logger)
	orch := orchestrator.New(cfg, store, run, guard, logger)

	lockPath := filepath.Join(cfg.Paths.LogDir, "nassavd.lock")
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		orch:      orch,
		persister: persister,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the instance lock, restores persisted state, and launches
// the orchestrator plus the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	snap, err := d.persister.Load()
	if err != nil {
		d.logger.Warn("persisted state unreadable, starting empty", logging.Error(err))
	} else {
		d.store.Import(snap)
	}
	d.store.OnChange(func(snap task.Snapshot) {
		if err := d.persister.Save(snap); err != nil {
			d.logger.Warn("state persist failed", logging.Error(err))
		}
	})

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.orch.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start orchestrator: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.orch.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.orch.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// APIAddr returns the bound HTTP address, or empty when the API is disabled
// or not started.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Fetch enqueues one key or a newline-separated batch.
func (d *Daemon) Fetch(input string) (orchestrator.EnqueueResult, error) {
	return d.orch.Enqueue(input)
}

// StopAll abandons the running job and the whole pending queue.
func (d *Daemon) StopAll() orchestrator.StopResult {
	return d.orch.StopAll()
}

// Status reports daemon and orchestrator state.
func (d *Daemon) Status() Status {
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Orchestrator:  d.orch.Status(),
		StateFilePath: d.persister.Path(),
		LockFilePath:  d.lockPath,
	}
}

// Tasks returns slim snapshots of every known task in creation order.
func (d *Daemon) Tasks() []task.Task {
	records := d.store.List()
	out := make([]task.Task, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Slim())
	}
	return out
}

// Task returns a slim snapshot of one task.
func (d *Daemon) Task(id string) (task.Task, bool) {
	rec, ok := d.store.Get(id)
	if !ok {
		return task.Task{}, false
	}
	return rec.Slim(), true
}

// TaskLogs returns retained log entries with sequence numbers greater than
// afterSeq.
func (d *Daemon) TaskLogs(id string, afterSeq int64) ([]task.LogEntry, bool) {
	rec, ok := d.store.Get(id)
	if !ok {
		return nil, false
	}
	return rec.LogsAfter(afterSeq), true
}

// Store exposes the task store for stream subscriptions.
func (d *Daemon) Store() *task.Store {
	return d.store
}
