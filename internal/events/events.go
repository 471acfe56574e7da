// Package events carries the save/load status contract between operations
// and whatever surface observes them (CLI progress, tests, a host runtime).
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mediasink/mediasink/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	// Save lifecycle phases
	EventSaveStart    EventType = "save_start"
	EventSaveProgress EventType = "save_progress"
	EventSaveComplete EventType = "save_complete"
	EventSaveError    EventType = "save_error"

	// Load lifecycle phases
	EventLoadStart    EventType = "load_start"
	EventLoadProgress EventType = "load_progress"
	EventLoadComplete EventType = "load_complete"
	EventLoadError    EventType = "load_error"

	// EventTransferBytes reports byte counters during a single item's
	// upload or download, once per chunk.
	EventTransferBytes EventType = "transfer_bytes"

	// Task tracker events (per-item state for batch UIs)
	EventTaskQueued    EventType = "task_queued"
	EventTaskStarted   EventType = "task_started"
	EventTaskProgress  EventType = "task_progress"
	EventTaskCompleted EventType = "task_completed"
	EventTaskFailed    EventType = "task_failed"
	EventTaskCancelled EventType = "task_cancelled"
)

// Where a save progress step happened.
const (
	WhereLocal = "local"
	WhereCloud = "cloud"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// StartEvent opens a save or load batch.
type StartEvent struct {
	BaseEvent
	Total    int    // number of items in the batch
	Provider string // empty for local-only operations
}

// ProgressEvent reports per-item completion within a batch.
type ProgressEvent struct {
	BaseEvent
	Where    string // WhereLocal or WhereCloud
	Current  int    // 1-based index of the finished item
	Total    int
	Filename string
}

// BytesEvent reports byte counters while a batch transfers. Counters are
// batch-cumulative: Sent sums every chunk moved so far across all items,
// Total is the whole batch size (0 when unknown, e.g. downloads without a
// Content-Length). Filename/Path/Index identify the item currently moving.
type BytesEvent struct {
	BaseEvent
	Filename string
	Provider string
	Path     string // destination path/key for the item
	Index    int    // item index within the batch
	Delta    int64  // bytes moved since the previous event
	Sent     int64  // bytes moved so far, summed across the batch
	Total    int64  // batch size in bytes, 0 when unknown
}

// CompleteEvent closes a successful batch. Saves report the local and
// cloud counts separately; loads report a single Count.
type CompleteEvent struct {
	BaseEvent
	Count      int
	CountLocal int
	CountCloud int
	Provider   string
}

// ErrorEvent carries the failure message for a batch. The same error is
// also returned from the operation; the event exists for passive observers.
type ErrorEvent struct {
	BaseEvent
	Message string
}

// TaskEvent mirrors per-item tracker state for batch progress UIs.
type TaskEvent struct {
	BaseEvent
	TaskID   string
	TaskType string // "upload" or "download"
	Name     string
	Size     int64
	Progress float64 // 0.0 to 1.0
	Speed    float64 // bytes/sec
	Error    error
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers. Publishing never blocks;
// events are dropped (and counted) when a subscriber's buffer is full.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range eb.all {
		close(ch)
	}
}

// Unsubscribe removes a subscription channel from a specific event type.
// This prevents memory leaks from abandoned subscriptions.
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// UnsubscribeAll removes a subscription channel from all event types.
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	for eventType, subscribers := range eb.subscribers {
		for i, subCh := range subscribers {
			if subCh == ch {
				subscribers[i] = subscribers[len(subscribers)-1]
				eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
				break
			}
		}
	}

	for i, subCh := range eb.all {
		if subCh == ch {
			eb.all[i] = eb.all[len(eb.all)-1]
			eb.all = eb.all[:len(eb.all)-1]
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to
// full buffers.
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}

// ResetDroppedEventCount resets the dropped event counter to zero.
func (eb *EventBus) ResetDroppedEventCount() int64 {
	return eb.droppedEvents.Swap(0)
}

// PublishSaveStart is a convenience publisher for the save start phase.
func (eb *EventBus) PublishSaveStart(total int, provider string) {
	eb.Publish(&StartEvent{
		BaseEvent: BaseEvent{EventType: EventSaveStart, Time: time.Now()},
		Total:     total,
		Provider:  provider,
	})
}

// PublishSaveProgress is a convenience publisher for per-item save progress.
func (eb *EventBus) PublishSaveProgress(where string, current, total int, filename string) {
	eb.Publish(&ProgressEvent{
		BaseEvent: BaseEvent{EventType: EventSaveProgress, Time: time.Now()},
		Where:     where,
		Current:   current,
		Total:     total,
		Filename:  filename,
	})
}

// PublishSaveComplete is a convenience publisher for the save complete phase.
func (eb *EventBus) PublishSaveComplete(countLocal, countCloud int, provider string) {
	eb.Publish(&CompleteEvent{
		BaseEvent:  BaseEvent{EventType: EventSaveComplete, Time: time.Now()},
		CountLocal: countLocal,
		CountCloud: countCloud,
		Provider:   provider,
	})
}

// PublishSaveError is a convenience publisher for the save error phase.
func (eb *EventBus) PublishSaveError(message string) {
	eb.Publish(&ErrorEvent{
		BaseEvent: BaseEvent{EventType: EventSaveError, Time: time.Now()},
		Message:   message,
	})
}

// PublishLoadStart is a convenience publisher for the load start phase.
func (eb *EventBus) PublishLoadStart(total int, provider string) {
	eb.Publish(&StartEvent{
		BaseEvent: BaseEvent{EventType: EventLoadStart, Time: time.Now()},
		Total:     total,
		Provider:  provider,
	})
}

// PublishLoadProgress is a convenience publisher for per-item load progress.
func (eb *EventBus) PublishLoadProgress(where string, current, total int, filename string) {
	eb.Publish(&ProgressEvent{
		BaseEvent: BaseEvent{EventType: EventLoadProgress, Time: time.Now()},
		Where:     where,
		Current:   current,
		Total:     total,
		Filename:  filename,
	})
}

// PublishLoadComplete is a convenience publisher for the load complete phase.
func (eb *EventBus) PublishLoadComplete(count int, provider string) {
	eb.Publish(&CompleteEvent{
		BaseEvent: BaseEvent{EventType: EventLoadComplete, Time: time.Now()},
		Count:     count,
		Provider:  provider,
	})
}

// PublishLoadError is a convenience publisher for the load error phase.
func (eb *EventBus) PublishLoadError(message string) {
	eb.Publish(&ErrorEvent{
		BaseEvent: BaseEvent{EventType: EventLoadError, Time: time.Now()},
		Message:   message,
	})
}

// PublishTransferBytes is a convenience publisher for byte counters.
func (eb *EventBus) PublishTransferBytes(provider, filename, path string, index int, delta, sent, total int64) {
	eb.Publish(&BytesEvent{
		BaseEvent: BaseEvent{EventType: EventTransferBytes, Time: time.Now()},
		Filename:  filename,
		Provider:  provider,
		Path:      path,
		Index:     index,
		Delta:     delta,
		Sent:      sent,
		Total:     total,
	})
}
