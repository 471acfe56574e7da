// Package transfer runs the cloud leg of save and load batches: the
// engine resolves the destination's provider once, bridges the provider's
// progress hooks onto the event bus, and a passive tracker keeps per-item
// state and speed for batch UIs.
package transfer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// TaskType indicates whether a task moves bytes up or down.
type TaskType string

const (
	TaskTypeUpload   TaskType = "upload"
	TaskTypeDownload TaskType = "download"
)

// TaskState is the lifecycle position of a tracked item.
type TaskState string

const (
	TaskQueued    TaskState = "queued"    // registered, no bytes moved yet
	TaskActive    TaskState = "active"    // transferring bytes
	TaskCompleted TaskState = "completed" // finished successfully
	TaskFailed    TaskState = "failed"    // aborted with an error
	TaskCancelled TaskState = "cancelled" // skipped after an earlier failure
)

// Task is one tracked item within a batch. Batches run sequentially, but
// observers read task state from other goroutines, so all access goes
// through the mutex; UIs take snapshots via Clone.
type Task struct {
	ID   string
	Type TaskType
	Name string // display name (filename or remote key)
	Size int64  // bytes, 0 until known (downloads learn it mid-flight)

	State    TaskState
	Progress float64 // 0.0 to 1.0
	Speed    float64 // bytes/sec, EMA-smoothed
	Error    error

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	// speed window internals
	lastBytes  int64
	lastSample time.Time

	mu sync.RWMutex
}

func newTask(taskType TaskType, name string, size int64) *Task {
	return &Task{
		ID:        generateTaskID(),
		Type:      taskType,
		Name:      name,
		Size:      size,
		State:     TaskQueued,
		CreatedAt: time.Now(),
	}
}

// advance records the byte counter for this item and refreshes the EMA
// speed. Returns true when the call moved the task from queued to active.
// Samples closer than 100ms apart only update progress, not speed, to keep
// the rate estimate meaningful.
func (t *Task) advance(sent, total int64) (started bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if total > 0 && t.Size == 0 {
		t.Size = total
	}
	if t.State == TaskQueued {
		t.State = TaskActive
		t.StartedAt = time.Now()
		started = true
	}
	if t.Size > 0 {
		t.Progress = float64(sent) / float64(t.Size)
	}

	now := time.Now()
	if t.lastSample.IsZero() {
		t.lastBytes = sent
		t.lastSample = now
		return started
	}
	if sent > t.lastBytes {
		elapsed := now.Sub(t.lastSample).Seconds()
		if elapsed > 0.1 {
			instant := float64(sent-t.lastBytes) / elapsed

			// EMA smoothing: 25% weight to the new sample keeps the
			// display steady while staying responsive to rate changes.
			const alpha = 0.25
			if t.Speed > 0 {
				t.Speed = alpha*instant + (1-alpha)*t.Speed
			} else {
				t.Speed = instant
			}
			t.lastBytes = sent
			t.lastSample = now
		}
	}
	return started
}

// complete marks the task finished and pins progress to 1.0.
func (t *Task) complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.State = TaskCompleted
	t.Progress = 1.0
	t.CompletedAt = time.Now()
}

// fail records the error and marks the task failed.
func (t *Task) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.State = TaskFailed
	t.Error = err
	t.CompletedAt = time.Now()
}

// cancel marks a non-terminal task cancelled. Terminal tasks are left
// untouched so a failure is never overwritten.
func (t *Task) cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.State == TaskCompleted || t.State == TaskFailed || t.State == TaskCancelled {
		return false
	}
	t.State = TaskCancelled
	t.CompletedAt = time.Now()
	return true
}

// GetState returns the current state.
func (t *Task) GetState() TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.State
}

// GetProgress returns the current progress fraction.
func (t *Task) GetProgress() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Progress
}

// GetSpeed returns the smoothed transfer speed in bytes/sec.
func (t *Task) GetSpeed() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Speed
}

// GetError returns the recorded error, if any.
func (t *Task) GetError() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Error
}

// IsTerminal reports whether the task reached a final state.
func (t *Task) IsTerminal() bool {
	state := t.GetState()
	return state == TaskCompleted || state == TaskFailed || state == TaskCancelled
}

// Clone returns a snapshot safe for external use.
func (t *Task) Clone() Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Task{
		ID:          t.ID,
		Type:        t.Type,
		Name:        t.Name,
		Size:        t.Size,
		State:       t.State,
		Progress:    t.Progress,
		Speed:       t.Speed,
		Error:       t.Error,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}

var taskCounter atomic.Uint64

func generateTaskID() string {
	return fmt.Sprintf("task-%d-%d", time.Now().UnixNano(), taskCounter.Add(1))
}
