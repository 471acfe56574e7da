// Package media shells out to ffmpeg and ffprobe for the encode and probe
// steps of save/load operations, and rewrites PNG metadata chunks in
// process. A missing binary surfaces as a sentinel error so callers can
// report it without parsing exec failures.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// Sentinel errors for missing tooling.
var (
	ErrFFmpegNotFound  = errors.New("ffmpeg binary not found in PATH")
	ErrFFprobeNotFound = errors.New("ffprobe binary not found in PATH")
)

// Binary names, overridable in tests.
var (
	ffmpegBin  = "ffmpeg"
	ffprobeBin = "ffprobe"
)

// stderrTailLimit caps how much encoder output an error carries.
const stderrTailLimit = 2048

// FFmpegError reports a failed ffmpeg or ffprobe invocation with the
// arguments used and the tail of its stderr.
type FFmpegError struct {
	Binary string
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s %s: %v", e.Binary, strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %s", e.Binary, strings.Join(e.Args, " "), e.Err, e.Stderr)
}

func (e *FFmpegError) Unwrap() error { return e.Err }

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}
	return s
}

func runBinary(ctx context.Context, bin string, notFound error, args []string) ([]byte, error) {
	if _, err := exec.LookPath(bin); err != nil {
		return nil, notFound
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &FFmpegError{Binary: bin, Args: args, Stderr: stderrTail(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

func runFFmpeg(ctx context.Context, args ...string) ([]byte, error) {
	return runBinary(ctx, ffmpegBin, ErrFFmpegNotFound, args)
}

func runFFprobe(ctx context.Context, args ...string) ([]byte, error) {
	return runBinary(ctx, ffprobeBin, ErrFFprobeNotFound, args)
}

// baseArgs opens every ffmpeg invocation: quiet output, overwrite
// without prompting, then the input file.
func baseArgs(inputPath string) []string {
	return []string{"-hide_banner", "-loglevel", "error", "-y", "-i", inputPath}
}

// metadataArgs renders container tags as -metadata flags in key order,
// so identical tag maps always produce identical command lines.
func metadataArgs(tags map[string]string) []string {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		out = append(out, "-metadata", k+"="+tags[k])
	}
	return out
}
