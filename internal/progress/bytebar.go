package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ByteBar renders one cumulative byte counter for a single transfer. An
// unknown total (0) renders as a spinner with a moving byte count.
type ByteBar struct {
	bar *progressbar.ProgressBar
}

// NewByteBar builds a bar writing to out.
func NewByteBar(out io.Writer, total int64, description string) *ByteBar {
	if total == 0 {
		total = -1 // spinner
	}
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &ByteBar{bar: bar}
}

// Set moves the bar to the batch-cumulative byte count.
func (b *ByteBar) Set(sent int64) {
	_ = b.bar.Set64(sent)
}

// Printf prints a line above the bar.
func (b *ByteBar) Printf(format string, args ...any) {
	_, _ = progressbar.Bprintf(b.bar, format, args...)
}

// Finish completes and releases the bar.
func (b *ByteBar) Finish() {
	_ = b.bar.Finish()
}
