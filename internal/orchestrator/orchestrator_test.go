package orchestrator_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"nassav/internal/ident"
	"nassav/internal/lockguard"
	"nassav/internal/orchestrator"
	"nassav/internal/runner"
	"nassav/internal/task"
	"nassav/internal/testsupport"
)

const quickToolScript = `key="$1"
mkdir -p "$key"
echo "50%"
printf 'data' > "$key/$key.mp4"
exit 0
`

const slowToolScript = `key="$1"
mkdir -p "$key"
i=0
while [ $i -lt 400 ]; do
  echo "chunk $i"
  i=$((i+1))
  sleep 0.05
done
`

func newOrchestrator(t *testing.T, script string) (*orchestrator.Orchestrator, *task.Store, *lockguard.Guard, func(string) string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithToolScript(script))
	store := task.NewStore(0)
	lock := lockguard.New(cfg.Paths.LockIndicator)
	r := runner.New(cfg, store, lock, nil)
	orch := orchestrator.New(cfg, store, r, lock, nil)

	if err := orch.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(orch.Stop)
	return orch, store, lock, cfg.TaskDir
}

func TestEnqueueRejectsEmptyInput(t *testing.T) {
	orch, _, _, _ := newOrchestrator(t, quickToolScript)
	if _, err := orch.Enqueue("  \n \n"); !errors.Is(err, ident.ErrEmptyKey) {
		t.Fatalf("err = %v, want ErrEmptyKey", err)
	}
}

func TestStartTwice(t *testing.T) {
	orch, _, _, _ := newOrchestrator(t, quickToolScript)
	if err := orch.Start(context.Background()); !errors.Is(err, orchestrator.ErrAlreadyRunning) {
		t.Fatalf("second Start err = %v, want ErrAlreadyRunning", err)
	}
}

func TestEnqueueBatchRunsSequentially(t *testing.T) {
	orch, store, _, _ := newOrchestrator(t, quickToolScript)

	result, err := orch.Enqueue("abc-1\nabc-2\nabc-1\n")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if result.Count != 2 || len(result.TaskIDs) != 2 {
		t.Fatalf("result = %+v, want 2 deduplicated tasks", result)
	}
	if result.BatchID == "" {
		t.Fatal("batch id missing")
	}

	testsupport.WaitFor(t, 15*time.Second, func() bool {
		for _, id := range result.TaskIDs {
			rec, ok := store.Get(id)
			if !ok || !rec.Terminal() {
				return false
			}
		}
		return true
	}, "batch never finished")

	for _, id := range result.TaskIDs {
		rec, _ := store.Get(id)
		if rec.Status != task.StatusDone {
			t.Fatalf("task %s status = %q (%s), want done", id, rec.Status, rec.Message)
		}
		if rec.BatchID != result.BatchID {
			t.Fatalf("task batch id = %q, want %q", rec.BatchID, result.BatchID)
		}
	}

	// Keys were canonicalized before the tasks were created.
	first, _ := store.Get(result.TaskIDs[0])
	if first.Key != "ABC-1" {
		t.Fatalf("key = %q, want ABC-1", first.Key)
	}
}

func TestStopAllDrainsQueueAndStopsRunningTask(t *testing.T) {
	orch, store, _, taskDir := newOrchestrator(t, slowToolScript)

	result, err := orch.Enqueue("run-1\nrun-2\nrun-3\n")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	testsupport.WaitFor(t, 10*time.Second, func() bool {
		rec, _ := store.Get(result.TaskIDs[0])
		return rec.Status == task.StatusRunning
	}, "first task never started")

	stop := orch.StopAll()
	if !stop.WasRunning {
		t.Fatal("stop did not report a running task")
	}
	if stop.StoppedTaskID != result.TaskIDs[0] {
		t.Fatalf("stopped task = %q, want %q", stop.StoppedTaskID, result.TaskIDs[0])
	}
	if stop.Cleared != 2 {
		t.Fatalf("cleared = %d, want 2", stop.Cleared)
	}

	for _, id := range result.TaskIDs {
		rec, _ := store.Get(id)
		if rec.Status != task.StatusStopped {
			t.Fatalf("task %s status = %q, want stopped", id, rec.Status)
		}
	}
	if !stop.DirRemoved {
		t.Fatal("working directory of the stopped task survived")
	}
	if _, err := os.Stat(taskDir("RUN-1")); !os.IsNotExist(err) {
		t.Fatal("task dir still present after stop")
	}

	// No queued task may start without a fresh enqueue.
	time.Sleep(200 * time.Millisecond)
	if status := orch.Status(); status.CurrentTaskID != "" || status.QueueLength != 0 {
		t.Fatalf("status after stop = %+v, want idle", status)
	}
}

func TestStopAllIdleIsWellFormed(t *testing.T) {
	orch, _, _, _ := newOrchestrator(t, quickToolScript)

	before := orch.Generation()
	stop := orch.StopAll()
	if stop.WasRunning || stop.Cleared != 0 || stop.DirRemoved {
		t.Fatalf("idle stop = %+v, want zero-effect response", stop)
	}
	if orch.Generation() != before+1 {
		t.Fatalf("generation = %d, want %d", orch.Generation(), before+1)
	}
}

func TestEnqueueAfterStopRunsFreshJobs(t *testing.T) {
	orch, store, _, _ := newOrchestrator(t, quickToolScript)

	orch.StopAll()
	result, err := orch.Enqueue("after-1")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	testsupport.WaitFor(t, 15*time.Second, func() bool {
		rec, _ := store.Get(result.TaskIDs[0])
		return rec.Terminal()
	}, "post-stop task never finished")

	rec, _ := store.Get(result.TaskIDs[0])
	if rec.Status != task.StatusDone {
		t.Fatalf("status = %q (%s), want done", rec.Status, rec.Message)
	}
}
