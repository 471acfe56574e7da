// Package naming resolves output filenames for save operations.
//
// A filename is chosen from three sources, in order:
//  1. An explicit filename provided by the user, taken as-is after
//     sanitization. A missing extension falls back to the operation default.
//  2. A custom name, which never carries an extension and always gets the
//     operation default appended.
//  3. The filename prefix, which supports %date:FORMAT% variables,
//     %NodeName.field% workflow tokens and %batch_num%, followed by a
//     random UUID so repeated runs never collide.
//
// Batches of more than one item append a zero-padded index (_000, _001, ...)
// before the extension on the first two sources.
package naming

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediasink/mediasink/internal/util/sanitize"
)

// FallbackPrefix is used when the configured prefix sanitizes away to
// nothing, so generated names never start with a bare dash.
const FallbackPrefix = "mediasink"

// Options describe one filename decision. BatchIndex is zero-based and
// BatchSize is the total number of items saved in the run.
type Options struct {
	Filename   string // explicit filename, wins when non-empty
	CustomName string // custom name without extension
	Prefix     string // filename prefix for generated names
	DefaultExt string // extension including the dot, e.g. ".png"
	BatchIndex int
	BatchSize  int
	Graph      Graph     // workflow graph for %NodeName.field% tokens, may be nil
	Now        time.Time // zero value means time.Now()
}

// ExpandTokens runs date variable and node field token expansion over text.
// Date variables are expanded first; %date:...% never matches the
// node-name.field pattern, so the order only matters for documentation.
func ExpandTokens(text string, graph Graph, now time.Time) string {
	return ProcessNodeFieldTokens(ProcessDateVariables(text, now), graph)
}

// SplitPrefix splits an expanded filename prefix into subfolder and base
// parts on the last forward slash. Prefixes use forward slashes regardless
// of host OS; "renders/%date:yyyy%/frame" expands and splits into
// ("renders/2024", "frame").
func SplitPrefix(prefix string) (subfolder, base string) {
	idx := strings.LastIndex(prefix, "/")
	if idx < 0 {
		return "", prefix
	}
	return prefix[:idx], prefix[idx+1:]
}

// BuildFilename resolves the output filename for one item of a save batch.
// All three name sources get token expansion with the same timestamp, so a
// batch resolved with one Options.Now lands in consistent locations.
func BuildFilename(opts Options) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	ext := opts.DefaultExt
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	if opts.Filename != "" {
		if name := sanitize.SanitizeFilename(ExpandTokens(opts.Filename, opts.Graph, now)); name != "" {
			base, fileExt := sanitize.SplitExt(name)
			if fileExt == "" {
				fileExt = ext
			}
			if opts.BatchSize > 1 {
				return fmt.Sprintf("%s_%03d%s", base, opts.BatchIndex, fileExt)
			}
			return base + fileExt
		}
	}

	if opts.CustomName != "" {
		if name := sanitize.SanitizeFilename(ExpandTokens(opts.CustomName, opts.Graph, now)); name != "" {
			if opts.BatchSize > 1 {
				return fmt.Sprintf("%s_%03d%s", name, opts.BatchIndex, ext)
			}
			return name + ext
		}
	}

	prefix := ExpandTokens(opts.Prefix, opts.Graph, now)
	prefix = strings.ReplaceAll(prefix, "%batch_num%", strconv.Itoa(opts.BatchIndex))
	prefix = sanitize.SanitizeFilename(prefix)
	if prefix == "" {
		prefix = FallbackPrefix
	}
	return fmt.Sprintf("%s-%s%s", prefix, uuid.NewString(), ext)
}
