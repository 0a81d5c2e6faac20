package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"nassav/internal/config"
	"nassav/internal/fileutil"
	"nassav/internal/joberr"
	"nassav/internal/lockguard"
	"nassav/internal/logging"
	"nassav/internal/progress"
	"nassav/internal/task"
)

const messageRuneLimit = 200

// artifactPollInterval is the cadence of the post-exit artifact search.
const artifactPollInterval = 500 * time.Millisecond

// Runner executes one acquisition job at a time: it launches the external
// tool, streams its output into the task record, and settles the task into a
// terminal state based on exit code, artifact presence, anomalies, and
// whether the job is still wanted.
type Runner struct {
	cfg    *config.Config
	store  *task.Store
	lock   *lockguard.Guard
	logger *slog.Logger

	mu      sync.Mutex
	current *Command
}

// New constructs a runner.
func New(cfg *config.Config, store *task.Store, lock *lockguard.Guard, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:    cfg,
		store:  store,
		lock:   lock,
		logger: logging.NewComponentLogger(logger, "runner"),
	}
}

// Interrupt sends the graceful termination signal to the live child's
// process group, if one exists. The streaming job notices the exit (and its
// stale generation) and settles the task itself.
func (r *Runner) Interrupt() {
	r.mu.Lock()
	cmd := r.current
	r.mu.Unlock()
	if cmd != nil {
		_ = cmd.Signal(SignalGraceful)
	}
}

// Run drives one job to a terminal state. alive reports whether the job's
// generation is still current; once it returns false the child is torn down
// and the task ends as stopped no matter how the process exits. Run never
// returns an error for job failures, only for programming errors such as an
// unknown task id.
func (r *Runner) Run(ctx context.Context, taskID string, alive func() bool) error {
	rec, ok := r.store.Get(taskID)
	if !ok {
		return joberr.Wrap(joberr.ErrNotFound, "runner", "run", fmt.Sprintf("unknown task %s", taskID), nil)
	}
	key := rec.Key
	taskDir := r.cfg.TaskDir(key)
	logger := r.logger.With(logging.String(logging.FieldTaskID, taskID), logging.String(logging.FieldKey, key))

	// A stop may land between dequeue and launch; don't start a child that
	// is already unwanted.
	if !alive() {
		r.settle(taskID, task.StatusStopped, "stopped by user", "")
		return nil
	}

	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		failure := joberr.Wrap(joberr.ErrConfiguration, "runner", "create task directory", "", err)
		logger.Error("task directory setup failed", logging.Error(err))
		r.fail(taskID, taskDir, failure, logger)
		return nil
	}
	// The tool refuses to start while the indicator says busy; a previous
	// crash may have left it stuck.
	if err := r.lock.Reset(); err != nil {
		logger.Warn("lock indicator reset failed", logging.Error(err))
	}

	cmd, err := StartCommand(r.cfg.Tool.Binary, append(append([]string{}, r.cfg.Tool.Args...), key), r.workDir())
	if err != nil {
		failure := joberr.Wrap(joberr.ErrLaunch, "runner", "start tool", "launch failed", err)
		logger.Error("tool launch failed", logging.Error(err))
		r.fail(taskID, taskDir, failure, logger)
		return nil
	}
	r.setCurrent(cmd)
	defer r.setCurrent(nil)

	pid := cmd.PID()
	logger.Info("tool started", logging.Int("pid", pid))
	r.store.Update(taskID, func(t *task.Task) {
		t.Status = task.StatusRunning
		t.PID = pid
		t.Message = "download started"
	})

	anomaly := r.stream(ctx, cmd, taskID, alive)

	waitTimeout := time.Duration(r.cfg.Tool.WaitTimeout) * time.Second
	code, waitErr := cmd.Wait(waitTimeout)
	if waitErr == ErrWaitTimeout {
		logger.Warn("tool exceeded wait timeout", logging.Duration("timeout", waitTimeout))
	}

	switch {
	case !alive():
		r.teardownStopped(taskID, key, taskDir, logger)
	case anomaly:
		r.teardownAnomaly(taskID, taskDir, logger)
	case code == 0 && waitErr == nil:
		r.finishClean(ctx, taskID, key, taskDir, logger)
	default:
		failure := joberr.Wrap(joberr.ErrExternalTool, "runner", "download", fmt.Sprintf("download failed: exit code %d", code), waitErr)
		logger.Error("tool failed", logging.Int("exit_code", code))
		r.fail(taskID, taskDir, failure, logger)
	}
	return nil
}

// stream forwards child output into the task record until the stream closes,
// re-checking the generation before every write. It reports whether the
// stuck-lock anomaly was observed.
func (r *Runner) stream(ctx context.Context, cmd *Command, taskID string, alive func() bool) bool {
	anomaly := false
	for line := range cmd.Lines() {
		if !alive() || ctx.Err() != nil {
			cmd.Terminate(r.gracePeriod())
			r.drainLines(cmd, taskID)
			return anomaly
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		r.store.AppendLog(taskID, trimmed)
		if progress.IsLockStuck(trimmed) {
			anomaly = true
			cmd.Terminate(r.gracePeriod())
			r.drainLines(cmd, taskID)
			return anomaly
		}
		r.store.Update(taskID, func(t *task.Task) {
			t.Percent = progress.Next(t.Percent, trimmed)
			t.Message = trimMessage(trimmed)
		})
	}
	return anomaly
}

// drainLines captures trailing output flushed while the group dies.
func (r *Runner) drainLines(cmd *Command, taskID string) {
	for line := range cmd.Lines() {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			r.store.AppendLog(taskID, trimmed)
		}
	}
}

func (r *Runner) finishClean(ctx context.Context, taskID, key, taskDir string, logger *slog.Logger) {
	wait := time.Duration(r.cfg.Tool.ArtifactWaitSeconds) * time.Second
	artifact := fileutil.WaitForArtifact(ctx, taskDir, key, wait, artifactPollInterval)
	if artifact == "" {
		failure := joberr.Wrap(joberr.ErrExternalTool, "runner", "collect artifact", "download produced no artifact", nil)
		logger.Error("tool exited cleanly but produced no artifact")
		r.fail(taskID, taskDir, failure, logger)
		return
	}
	logger.Info("download complete", logging.String("artifact", artifact))
	r.store.Update(taskID, func(t *task.Task) {
		t.Status = task.StatusDone
		t.Percent = 100
		t.Message = "done"
		t.ArtifactPath = artifact
	})
}

func (r *Runner) teardownStopped(taskID, key, taskDir string, logger *slog.Logger) {
	logger.Info("task stopped by request")
	r.cleanup(taskDir, logger)
	if err := r.lock.Reset(); err != nil {
		logger.Warn("lock indicator reset failed", logging.Error(err))
	}
	r.settle(taskID, task.StatusStopped, "stopped by user", "")
}

func (r *Runner) teardownAnomaly(taskID, taskDir string, logger *slog.Logger) {
	logger.Error("downloader reported a stuck shared lock")
	if err := r.lock.Reset(); err != nil {
		logger.Warn("lock indicator reset failed", logging.Error(err))
	}
	failure := joberr.Wrap(joberr.ErrLockHeld, "runner", "download", "downloader lock was stuck; indicator reset, please retry", nil)
	r.fail(taskID, taskDir, failure, logger)
}

// fail removes the task directory and settles the task into the terminal
// state the classified failure maps to, with the failure text as message.
func (r *Runner) fail(taskID, taskDir string, failure error, logger *slog.Logger) {
	r.cleanup(taskDir, logger)
	r.settle(taskID, joberr.Status(failure), failure.Error(), "")
}

// cleanup best-effort removes taskDir, refusing anything outside the output
// root so a malformed key can never delete unrelated paths.
func (r *Runner) cleanup(taskDir string, logger *slog.Logger) bool {
	removed, err := fileutil.RemoveTaskDir(r.cfg.Paths.OutputDir, taskDir)
	if err != nil {
		logger.Warn("task directory cleanup failed", logging.String("dir", taskDir), logging.Error(err))
		return false
	}
	return removed
}

func (r *Runner) settle(taskID string, status task.Status, message, artifact string) {
	r.store.Update(taskID, func(t *task.Task) {
		t.Status = status
		t.Message = message
		if artifact != "" {
			t.ArtifactPath = artifact
		}
	})
}

func (r *Runner) setCurrent(cmd *Command) {
	r.mu.Lock()
	r.current = cmd
	r.mu.Unlock()
}

func (r *Runner) workDir() string {
	if r.cfg.Tool.WorkDir != "" {
		return r.cfg.Tool.WorkDir
	}
	return r.cfg.Paths.OutputDir
}

func (r *Runner) gracePeriod() time.Duration {
	return time.Duration(r.cfg.Tool.GracePeriod) * time.Second
}

func trimMessage(line string) string {
	runes := []rune(line)
	if len(runes) <= messageRuneLimit {
		return line
	}
	return string(runes[:messageRuneLimit])
}
