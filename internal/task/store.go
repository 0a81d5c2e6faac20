package task

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxLogLines bounds per-task log retention when no limit is configured.
const DefaultMaxLogLines = 3000

// Snapshot is the durable mirror of the store: the current task pointer and
// the full task table.
type Snapshot struct {
	CurrentTaskID string          `json:"current_task_id"`
	Tasks         map[string]Task `json:"tasks"`
}

// Store is the in-memory task table. One mutex guards every mutation; reads
// hand out deep copies so stream publishers never observe a partially
// updated record.
type Store struct {
	mu          sync.Mutex
	tasks       map[string]*Task
	order       []string
	current     string
	maxLogLines int
	onChange    func(Snapshot)
}

// NewStore constructs an empty store retaining at most maxLogLines per task.
func NewStore(maxLogLines int) *Store {
	if maxLogLines <= 0 {
		maxLogLines = DefaultMaxLogLines
	}
	return &Store{
		tasks:       make(map[string]*Task),
		maxLogLines: maxLogLines,
	}
}

// OnChange registers a hook invoked with a fresh snapshot after each material
// mutation. The hook runs outside the store lock and must not call back into
// the store.
func (s *Store) OnChange(hook func(Snapshot)) {
	s.mu.Lock()
	s.onChange = hook
	s.mu.Unlock()
}

// Create inserts a new queued task for the given canonical key and returns a copy.
func (s *Store) Create(key, batchID string) Task {
	now := time.Now()
	t := &Task{
		ID:        newTaskID(),
		Key:       key,
		BatchID:   batchID,
		Status:    StatusQueued,
		Percent:   0,
		Message:   "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	cp := cloneTask(t)
	hook, snap := s.changedLocked()
	s.mu.Unlock()

	if hook != nil {
		hook(snap)
	}
	return cp
}

// Get returns a copy of the task, or false when the id is unknown.
func (s *Store) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return cloneTask(t), true
}

// List returns copies of all tasks in creation order.
func (s *Store) List() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.order))
	for _, id := range s.order {
		if t, ok := s.tasks[id]; ok {
			out = append(out, cloneTask(t))
		}
	}
	return out
}

// Update applies mutate to the task under the store lock and returns the
// resulting copy. Terminal tasks are immutable: mutate is not invoked for
// them. Percent regressions on a live task are discarded so observers only
// ever see a non-decreasing series.
func (s *Store) Update(id string, mutate func(*Task)) (Task, bool) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return Task{}, false
	}
	if t.Terminal() {
		cp := cloneTask(t)
		s.mu.Unlock()
		return cp, true
	}

	prevPercent := t.Percent
	mutate(t)
	if !t.Terminal() && t.Percent < prevPercent {
		t.Percent = prevPercent
	}
	t.UpdatedAt = time.Now()
	cp := cloneTask(t)
	hook, snap := s.changedLocked()
	s.mu.Unlock()

	if hook != nil {
		hook(snap)
	}
	return cp, true
}

// AppendLog adds one line to the task's bounded log buffer, evicting the
// oldest entries beyond the cap. Appends are permitted on terminal tasks to
// capture trailing output flushed as the process exits.
func (s *Store) AppendLog(id, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return
	}
	t.LogSeq++
	t.Logs = append(t.Logs, LogEntry{Seq: t.LogSeq, Line: line, At: time.Now()})
	if excess := len(t.Logs) - s.maxLogLines; excess > 0 {
		t.Logs = append(t.Logs[:0:0], t.Logs[excess:]...)
	}
}

// SetCurrent records which task the worker is executing; empty clears it.
func (s *Store) SetCurrent(id string) {
	s.mu.Lock()
	s.current = id
	hook, snap := s.changedLocked()
	s.mu.Unlock()

	if hook != nil {
		hook(snap)
	}
}

// Current returns the id of the task the worker is executing, if any.
func (s *Store) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Export captures a snapshot of the full store for persistence.
func (s *Store) Export() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportLocked()
}

// Import replaces the store contents with a previously persisted snapshot.
// Used once at startup, before the worker runs.
func (s *Store) Import(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*Task, len(snap.Tasks))
	s.order = s.order[:0]
	for id := range snap.Tasks {
		t := snap.Tasks[id]
		s.tasks[id] = &t
		s.order = append(s.order, id)
	}
	// Restore creation order; map iteration scrambled it.
	sort.SliceStable(s.order, func(i, j int) bool {
		return s.tasks[s.order[i]].CreatedAt.Before(s.tasks[s.order[j]].CreatedAt)
	})
	s.current = snap.CurrentTaskID
}

func (s *Store) exportLocked() Snapshot {
	tasks := make(map[string]Task, len(s.tasks))
	for id, t := range s.tasks {
		tasks[id] = cloneTask(t)
	}
	return Snapshot{CurrentTaskID: s.current, Tasks: tasks}
}

func (s *Store) changedLocked() (func(Snapshot), Snapshot) {
	if s.onChange == nil {
		return nil, Snapshot{}
	}
	return s.onChange, s.exportLocked()
}

func newTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
