package transfer

import (
	"sync"
	"time"

	"github.com/mediasink/mediasink/internal/events"
)

// Stats summarizes tracked tasks by state.
type Stats struct {
	Queued    int
	Active    int
	Completed int
	Failed    int
	Cancelled int
}

// Total returns the number of tracked tasks.
func (s Stats) Total() int {
	return s.Queued + s.Active + s.Completed + s.Failed + s.Cancelled
}

// Tracker passively observes batch transfers. The engine registers items
// and reports their lifecycle; the tracker keeps state and republishes it
// as task events for progress UIs. It never executes transfers itself.
type Tracker struct {
	mu    sync.RWMutex
	tasks []*Task // creation order
	byID  map[string]*Task
	bus   *events.EventBus
}

// NewTracker returns a tracker publishing task events on bus. A nil bus
// is valid; the tracker then only keeps state.
func NewTracker(bus *events.EventBus) *Tracker {
	return &Tracker{
		byID: make(map[string]*Task),
		bus:  bus,
	}
}

// Track registers a new item in the queued state.
func (tr *Tracker) Track(taskType TaskType, name string, size int64) *Task {
	task := newTask(taskType, name, size)

	tr.mu.Lock()
	tr.tasks = append(tr.tasks, task)
	tr.byID[task.ID] = task
	tr.mu.Unlock()

	tr.publishTask(events.EventTaskQueued, task)
	return task
}

// Progress records a byte-counter sample for a task. The first sample
// moves the task to active and announces it.
func (tr *Tracker) Progress(taskID string, sent, total int64) {
	task := tr.lookup(taskID)
	if task == nil {
		return
	}
	if task.advance(sent, total) {
		tr.publishTask(events.EventTaskStarted, task)
	}
	tr.publishTask(events.EventTaskProgress, task)
}

// Complete marks a task successfully finished.
func (tr *Tracker) Complete(taskID string) {
	task := tr.lookup(taskID)
	if task == nil {
		return
	}
	task.complete()
	tr.publishTask(events.EventTaskCompleted, task)
}

// Fail marks a task failed with err.
func (tr *Tracker) Fail(taskID string, err error) {
	task := tr.lookup(taskID)
	if task == nil {
		return
	}
	task.fail(err)
	tr.publishTask(events.EventTaskFailed, task)
}

// CancelPending marks every non-terminal task cancelled. The engine calls
// it when a batch aborts so queued items don't linger as stale state.
func (tr *Tracker) CancelPending() {
	tr.mu.RLock()
	tasks := make([]*Task, len(tr.tasks))
	copy(tasks, tr.tasks)
	tr.mu.RUnlock()

	for _, task := range tasks {
		if task.cancel() {
			tr.publishTask(events.EventTaskCancelled, task)
		}
	}
}

// ClearFinished drops terminal tasks from the tracker.
func (tr *Tracker) ClearFinished() {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	kept := tr.tasks[:0]
	for _, task := range tr.tasks {
		if task.IsTerminal() {
			delete(tr.byID, task.ID)
		} else {
			kept = append(kept, task)
		}
	}
	tr.tasks = kept
}

// Stats returns current per-state counts.
func (tr *Tracker) Stats() Stats {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	var stats Stats
	for _, task := range tr.tasks {
		switch task.GetState() {
		case TaskQueued:
			stats.Queued++
		case TaskActive:
			stats.Active++
		case TaskCompleted:
			stats.Completed++
		case TaskFailed:
			stats.Failed++
		case TaskCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// Tasks returns snapshots of every tracked task in creation order.
func (tr *Tracker) Tasks() []Task {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	out := make([]Task, len(tr.tasks))
	for i, task := range tr.tasks {
		out[i] = task.Clone()
	}
	return out
}

// Task returns a snapshot of one task by ID.
func (tr *Tracker) Task(taskID string) (Task, bool) {
	task := tr.lookup(taskID)
	if task == nil {
		return Task{}, false
	}
	return task.Clone(), true
}

func (tr *Tracker) lookup(taskID string) *Task {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return tr.byID[taskID]
}

func (tr *Tracker) publishTask(eventType events.EventType, task *Task) {
	if tr.bus == nil {
		return
	}

	task.mu.RLock()
	ev := &events.TaskEvent{
		BaseEvent: events.BaseEvent{EventType: eventType, Time: time.Now()},
		TaskID:    task.ID,
		TaskType:  string(task.Type),
		Name:      task.Name,
		Size:      task.Size,
		Progress:  task.Progress,
		Speed:     task.Speed,
		Error:     task.Error,
	}
	task.mu.RUnlock()

	tr.bus.Publish(ev)
}
