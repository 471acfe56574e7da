// Package progress renders save/load lifecycle events as terminal
// progress. On a TTY, cloud batches get one bar per item and single
// transfers a byte counter; everywhere else events fall back to plain
// text lines. The renderer is a passive event-bus subscriber, so
// operations stay unaware of how (or whether) progress is displayed.
package progress

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/mediasink/mediasink/internal/events"
	ustrings "github.com/mediasink/mediasink/internal/util/strings"
)

// Mode selects how events are rendered.
type Mode int

const (
	// ModeAuto draws bars on a TTY and text lines otherwise.
	ModeAuto Mode = iota
	// ModePlain always renders text lines.
	ModePlain
	// ModeQuiet renders nothing.
	ModeQuiet
)

// ParseMode maps a flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "plain":
		return ModePlain, nil
	case "none", "quiet":
		return ModeQuiet, nil
	default:
		return ModeAuto, fmt.Errorf("unknown progress mode %q (expected auto, plain or none)", s)
	}
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithOutput redirects rendering away from stderr. Non-file writers
// disable bars regardless of mode.
func WithOutput(w io.Writer) Option {
	return func(r *Renderer) { r.out = w }
}

// WithMode sets the render mode.
func WithMode(m Mode) Option {
	return func(r *Renderer) { r.mode = m }
}

// Renderer subscribes to the event bus and renders the save/load
// lifecycle until stopped.
type Renderer struct {
	bus  *events.EventBus
	out  io.Writer
	mode Mode

	ch   <-chan events.Event
	quit chan struct{}
	done chan struct{}

	// per-batch state, touched only by the render goroutine
	verb     string // "save" or "load"
	total    int
	provider string
	batch    *BatchUI
	byteBar  *ByteBar
}

// NewRenderer builds a renderer for bus. Call Start to begin rendering.
func NewRenderer(bus *events.EventBus, opts ...Option) *Renderer {
	r := &Renderer{
		bus:  bus,
		out:  os.Stderr,
		mode: ModeAuto,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start subscribes and renders on a background goroutine.
func (r *Renderer) Start() {
	r.ch = r.bus.SubscribeAll()
	r.quit = make(chan struct{})
	r.done = make(chan struct{})
	go r.run()
}

// Stop drains buffered events, renders them and returns. Safe to call
// once after the operation whose progress is being rendered returned.
func (r *Renderer) Stop() {
	if r.quit == nil {
		return
	}
	close(r.quit)
	<-r.done
	r.bus.UnsubscribeAll(r.ch)
}

func (r *Renderer) run() {
	defer close(r.done)
	for {
		select {
		case ev, ok := <-r.ch:
			if !ok {
				r.finishUIs()
				return
			}
			r.handle(ev)
		case <-r.quit:
			// Events published before Stop are already buffered; drain
			// them so the tail of the batch still renders.
			for {
				select {
				case ev, ok := <-r.ch:
					if !ok {
						r.finishUIs()
						return
					}
					r.handle(ev)
				default:
					r.finishUIs()
					return
				}
			}
		}
	}
}

// barsEnabled reports whether bar UIs may draw: auto mode on a real
// terminal.
func (r *Renderer) barsEnabled() bool {
	if r.mode != ModeAuto {
		return false
	}
	f, ok := r.out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (r *Renderer) handle(ev events.Event) {
	if r.mode == ModeQuiet {
		return
	}
	switch e := ev.(type) {
	case *events.StartEvent:
		r.handleStart(e)
	case *events.ProgressEvent:
		r.handleProgress(e)
	case *events.BytesEvent:
		r.handleBytes(e)
	case *events.TaskEvent:
		r.handleTask(e)
	case *events.CompleteEvent:
		r.handleComplete(e)
	case *events.ErrorEvent:
		r.handleError(e)
	}
}

func (r *Renderer) handleStart(e *events.StartEvent) {
	r.total = e.Total
	r.provider = e.Provider
	files := ustrings.Pluralize("file", int64(e.Total))
	switch e.Type() {
	case events.EventSaveStart:
		r.verb = "save"
		if e.Provider != "" {
			r.printf("Saving %d %s to %s\n", e.Total, files, e.Provider)
		} else {
			r.printf("Saving %d %s\n", e.Total, files)
		}
	case events.EventLoadStart:
		r.verb = "load"
		if e.Provider != "" {
			r.printf("Loading %d %s from %s\n", e.Total, files, e.Provider)
		} else {
			r.printf("Loading %d %s\n", e.Total, files)
		}
	}
}

func (r *Renderer) handleProgress(e *events.ProgressEvent) {
	// Cloud items render through their task bars on a TTY; the text line
	// would fight the bar redraws.
	if e.Where == events.WhereCloud && (r.batch != nil || r.byteBar != nil) {
		return
	}
	r.printf("  %s [%d/%d] %s\n", e.Where, e.Current, e.Total, e.Filename)
}

func (r *Renderer) handleBytes(e *events.BytesEvent) {
	if !r.barsEnabled() || r.batch != nil {
		return
	}
	// Single-item batches skip the multi-bar UI and render one byte
	// counter instead.
	if r.byteBar == nil {
		if r.total > 1 {
			return
		}
		r.byteBar = NewByteBar(r.out, e.Total, e.Filename)
	}
	r.byteBar.Set(e.Sent)
}

func (r *Renderer) handleTask(e *events.TaskEvent) {
	if !r.barsEnabled() || r.total <= 1 {
		return
	}
	switch e.Type() {
	case events.EventTaskQueued:
		if r.batch == nil {
			r.batch = NewBatchUI(r.out, taskVerb(e.TaskType), r.total)
		}
		r.batch.Add(e.TaskID, e.Name, e.Size)
	case events.EventTaskProgress:
		if r.batch != nil {
			r.batch.Update(e.TaskID, e.Progress)
		}
	case events.EventTaskCompleted:
		if r.batch != nil {
			r.batch.Complete(e.TaskID, nil)
		}
	case events.EventTaskFailed:
		if r.batch != nil {
			r.batch.Complete(e.TaskID, e.Error)
		}
	case events.EventTaskCancelled:
		if r.batch != nil {
			r.batch.Cancel(e.TaskID)
		}
	}
}

func (r *Renderer) handleComplete(e *events.CompleteEvent) {
	r.finishUIs()
	switch e.Type() {
	case events.EventSaveComplete:
		switch {
		case e.CountLocal > 0 && e.CountCloud > 0:
			r.printf("✓ saved %d local, %d to %s\n", e.CountLocal, e.CountCloud, e.Provider)
		case e.CountCloud > 0:
			r.printf("✓ saved %d to %s\n", e.CountCloud, e.Provider)
		default:
			r.printf("✓ saved %d local\n", e.CountLocal)
		}
	case events.EventLoadComplete:
		files := ustrings.Pluralize("file", int64(e.Count))
		if e.Provider != "" {
			r.printf("✓ loaded %d %s from %s\n", e.Count, files, e.Provider)
		} else {
			r.printf("✓ loaded %d %s\n", e.Count, files)
		}
	}
}

func (r *Renderer) handleError(e *events.ErrorEvent) {
	r.finishUIs()
	r.printf("✗ %s\n", e.Message)
}

// printf writes a text line, routing through the batch UI writer when
// bars are on screen so lines land above them.
func (r *Renderer) printf(format string, args ...any) {
	if r.batch != nil {
		r.batch.Printf(format, args...)
		return
	}
	if r.byteBar != nil {
		r.byteBar.Printf(format, args...)
		return
	}
	fmt.Fprintf(r.out, format, args...)
}

func (r *Renderer) finishUIs() {
	if r.batch != nil {
		r.batch.Wait()
		r.batch = nil
	}
	if r.byteBar != nil {
		r.byteBar.Finish()
		r.byteBar = nil
	}
}

func taskVerb(taskType string) string {
	if taskType == "download" {
		return "Downloading"
	}
	return "Uploading"
}
