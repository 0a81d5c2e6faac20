package task_test

import (
	"testing"

	"nassav/internal/task"
)

func TestStoreCreate(t *testing.T) {
	store := task.NewStore(0)
	created := store.Create("ABC-123", "batch1")

	if created.ID == "" {
		t.Fatal("Create returned empty id")
	}
	if created.Status != task.StatusQueued {
		t.Fatalf("status = %q, want %q", created.Status, task.StatusQueued)
	}
	if created.Percent != 0 {
		t.Fatalf("percent = %d, want 0", created.Percent)
	}
	if created.BatchID != "batch1" {
		t.Fatalf("batch id = %q, want %q", created.BatchID, "batch1")
	}

	got, ok := store.Get(created.ID)
	if !ok {
		t.Fatal("Get did not find created task")
	}
	if got.Key != "ABC-123" {
		t.Fatalf("key = %q, want %q", got.Key, "ABC-123")
	}
}

func TestStoreListCreationOrder(t *testing.T) {
	store := task.NewStore(0)
	first := store.Create("AAA-001", "")
	second := store.Create("BBB-002", "")
	third := store.Create("CCC-003", "")

	got := store.List()
	if len(got) != 3 {
		t.Fatalf("List returned %d tasks, want 3", len(got))
	}
	wantOrder := []string{first.ID, second.ID, third.ID}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Fatalf("List[%d].ID = %q, want %q", i, got[i].ID, want)
		}
	}
}

func TestStoreUpdatePercentMonotonic(t *testing.T) {
	store := task.NewStore(0)
	created := store.Create("AAA-001", "")

	store.Update(created.ID, func(rec *task.Task) {
		rec.Status = task.StatusRunning
		rec.Percent = 40
	})
	updated, ok := store.Update(created.ID, func(rec *task.Task) {
		rec.Percent = 25
	})
	if !ok {
		t.Fatal("Update did not find task")
	}
	if updated.Percent != 40 {
		t.Fatalf("percent = %d, want regression discarded at 40", updated.Percent)
	}

	updated, _ = store.Update(created.ID, func(rec *task.Task) {
		rec.Percent = 55
	})
	if updated.Percent != 55 {
		t.Fatalf("percent = %d, want 55", updated.Percent)
	}
}

func TestStoreUpdateTerminalImmutable(t *testing.T) {
	store := task.NewStore(0)
	created := store.Create("AAA-001", "")

	store.Update(created.ID, func(rec *task.Task) {
		rec.Status = task.StatusDone
		rec.Percent = 100
	})

	invoked := false
	after, ok := store.Update(created.ID, func(rec *task.Task) {
		invoked = true
		rec.Status = task.StatusRunning
	})
	if !ok {
		t.Fatal("Update did not find task")
	}
	if invoked {
		t.Fatal("mutate invoked on terminal task")
	}
	if after.Status != task.StatusDone || after.Percent != 100 {
		t.Fatalf("terminal task changed: status=%q percent=%d", after.Status, after.Percent)
	}
}

func TestStoreUpdateUnknownID(t *testing.T) {
	store := task.NewStore(0)
	if _, ok := store.Update("missing", func(*task.Task) {}); ok {
		t.Fatal("Update reported success for unknown id")
	}
}

func TestStoreAppendLogSequenceAndEviction(t *testing.T) {
	store := task.NewStore(3)
	created := store.Create("AAA-001", "")

	for _, line := range []string{"one", "two", "three", "four", "five"} {
		store.AppendLog(created.ID, line)
	}

	got, _ := store.Get(created.ID)
	if got.LogSeq != 5 {
		t.Fatalf("LogSeq = %d, want 5", got.LogSeq)
	}
	if len(got.Logs) != 3 {
		t.Fatalf("retained %d lines, want 3", len(got.Logs))
	}
	if got.Logs[0].Seq != 3 || got.Logs[0].Line != "three" {
		t.Fatalf("oldest retained = seq %d %q, want seq 3 %q", got.Logs[0].Seq, got.Logs[0].Line, "three")
	}
	if got.Logs[2].Line != "five" {
		t.Fatalf("newest retained = %q, want %q", got.Logs[2].Line, "five")
	}
}

func TestStoreAppendLogOnTerminalTask(t *testing.T) {
	store := task.NewStore(0)
	created := store.Create("AAA-001", "")
	store.Update(created.ID, func(rec *task.Task) {
		rec.Status = task.StatusError
	})

	store.AppendLog(created.ID, "trailing output")
	got, _ := store.Get(created.ID)
	if len(got.Logs) != 1 || got.Logs[0].Line != "trailing output" {
		t.Fatalf("terminal append lost: %+v", got.Logs)
	}
}

func TestStoreCurrent(t *testing.T) {
	store := task.NewStore(0)
	created := store.Create("AAA-001", "")

	store.SetCurrent(created.ID)
	if got := store.Current(); got != created.ID {
		t.Fatalf("Current = %q, want %q", got, created.ID)
	}
	store.SetCurrent("")
	if got := store.Current(); got != "" {
		t.Fatalf("Current = %q, want empty", got)
	}
}

func TestStoreExportImportRoundTrip(t *testing.T) {
	store := task.NewStore(0)
	first := store.Create("AAA-001", "b1")
	second := store.Create("BBB-002", "b1")
	store.Update(first.ID, func(rec *task.Task) {
		rec.Status = task.StatusRunning
		rec.Percent = 63
	})
	store.AppendLog(first.ID, "progress line")
	store.SetCurrent(first.ID)

	restored := task.NewStore(0)
	restored.Import(store.Export())

	if restored.Current() != first.ID {
		t.Fatalf("restored current = %q, want %q", restored.Current(), first.ID)
	}
	got := restored.List()
	if len(got) != 2 {
		t.Fatalf("restored %d tasks, want 2", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatal("Import did not restore creation order")
	}
	if got[0].Percent != 63 || got[0].Status != task.StatusRunning {
		t.Fatalf("restored task = status %q percent %d", got[0].Status, got[0].Percent)
	}
	if len(got[0].Logs) != 1 || got[0].Logs[0].Line != "progress line" {
		t.Fatalf("restored logs = %+v", got[0].Logs)
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	store := task.NewStore(0)
	created := store.Create("AAA-001", "")
	store.AppendLog(created.ID, "original")

	got, _ := store.Get(created.ID)
	got.Logs[0].Line = "mutated"
	got.Percent = 90

	again, _ := store.Get(created.ID)
	if again.Logs[0].Line != "original" || again.Percent != 0 {
		t.Fatal("Get exposed internal state to mutation")
	}
}

func TestStoreOnChange(t *testing.T) {
	store := task.NewStore(0)
	var snaps []task.Snapshot
	store.OnChange(func(snap task.Snapshot) {
		snaps = append(snaps, snap)
	})

	created := store.Create("AAA-001", "")
	store.Update(created.ID, func(rec *task.Task) {
		rec.Status = task.StatusRunning
	})
	store.SetCurrent(created.ID)

	if len(snaps) != 3 {
		t.Fatalf("hook fired %d times, want 3", len(snaps))
	}
	last := snaps[len(snaps)-1]
	if last.CurrentTaskID != created.ID {
		t.Fatalf("snapshot current = %q, want %q", last.CurrentTaskID, created.ID)
	}
	if last.Tasks[created.ID].Status != task.StatusRunning {
		t.Fatalf("snapshot status = %q, want running", last.Tasks[created.ID].Status)
	}
}
