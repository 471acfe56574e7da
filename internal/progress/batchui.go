package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// BatchUI renders one bar per item of a cloud batch. Bars disappear as
// items finish; a summary line is written above the remaining bars.
type BatchUI struct {
	progress *mpb.Progress
	verb     string
	total    int

	mu   sync.Mutex
	bars map[string]*itemBar
	next int
}

type itemBar struct {
	bar        *mpb.Bar
	name       string
	size       int64
	index      int
	startTime  time.Time
	lastUpdate time.Time
	lastBytes  int64
}

// NewBatchUI builds a multi-bar UI writing to out. verb labels the batch
// ("Uploading" or "Downloading") and total is the number of items.
func NewBatchUI(out io.Writer, verb string, total int) *BatchUI {
	if f, ok := out.(*os.File); ok {
		enableWindowsANSI(f)
	}
	return &BatchUI{
		progress: mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(100),
		),
		verb:  verb,
		total: total,
		bars:  make(map[string]*itemBar),
	}
}

// Add registers a bar for one item.
func (u *BatchUI) Add(taskID, name string, size int64) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.next++
	ib := &itemBar{
		name:       name,
		size:       size,
		index:      u.next,
		startTime:  time.Now(),
		lastUpdate: time.Now(),
	}
	label := fmt.Sprintf("[%d/%d] %s %s (%.1f MiB)",
		ib.index, u.total, u.verb, truncatePath(name, 2), float64(size)/(1024*1024))

	ib.bar = u.progress.New(size,
		mpb.BarStyle().
			Lbound("[").
			Filler("█").
			Tip("█").
			Padding("░").
			Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(label, decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
			decor.Name("  "),
			decor.Percentage(decor.WCSyncSpace),
			decor.Name("  "),
			decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30, decor.WCSyncSpace),
			decor.Name("  ETA "),
			decor.EwmaETA(decor.ET_STYLE_GO, 30),
		),
		mpb.BarRemoveOnComplete(),
	)
	u.bars[taskID] = ib
}

// Update moves an item's bar to the given fraction. Updates are
// throttled, but elapsed time always feeds the EWMA so speed and ETA stay
// honest through stalls.
func (u *BatchUI) Update(taskID string, fraction float64) {
	u.mu.Lock()
	ib := u.bars[taskID]
	u.mu.Unlock()
	if ib == nil {
		return
	}

	now := time.Now()
	elapsed := now.Sub(ib.lastUpdate)
	if elapsed < 300*time.Millisecond {
		return
	}

	currentBytes := int64(fraction * float64(ib.size))
	ib.bar.EwmaIncrBy(int(currentBytes-ib.lastBytes), elapsed)
	ib.lastBytes = currentBytes
	ib.lastUpdate = now
}

// Complete finishes an item's bar and writes its summary line.
func (u *BatchUI) Complete(taskID string, err error) {
	u.mu.Lock()
	ib := u.bars[taskID]
	delete(u.bars, taskID)
	u.mu.Unlock()
	if ib == nil {
		return
	}

	elapsed := time.Since(ib.startTime)
	if err == nil {
		ib.bar.SetCurrent(ib.size)
		ib.bar.SetTotal(ib.size, true)
		speed := float64(ib.size) / max(elapsed.Seconds(), 0.001) / (1024 * 1024)
		u.Printf("✓ %s (%.1f MiB, %s, %.1f MiB/s)\n",
			truncatePath(ib.name, 2), float64(ib.size)/(1024*1024), elapsed.Round(time.Second), speed)
		return
	}
	ib.bar.Abort(false)
	u.Printf("✗ %s: %v\n", truncatePath(ib.name, 2), err)
}

// Cancel removes an item's bar without a summary.
func (u *BatchUI) Cancel(taskID string) {
	u.mu.Lock()
	ib := u.bars[taskID]
	delete(u.bars, taskID)
	u.mu.Unlock()
	if ib != nil {
		ib.bar.Abort(true)
	}
}

// Printf writes a line above the bars through mpb's writer, so it does
// not tear the redraw.
func (u *BatchUI) Printf(format string, args ...any) {
	fmt.Fprintf(u.progress, format, args...)
}

// Wait aborts any bars still on screen and blocks until mpb has
// rendered the final state.
func (u *BatchUI) Wait() {
	u.mu.Lock()
	for id, ib := range u.bars {
		ib.bar.Abort(true)
		delete(u.bars, id)
	}
	u.mu.Unlock()
	u.progress.Wait()
}

// truncatePath keeps the last n components of a path for display.
func truncatePath(path string, n int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= n {
		return path
	}
	return ".../" + strings.Join(parts[len(parts)-n:], "/")
}
