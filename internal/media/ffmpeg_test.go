package media

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFFmpegErrorFormatting(t *testing.T) {
	inner := errors.New("exit status 1")
	err := &FFmpegError{
		Binary: "ffmpeg",
		Args:   []string{"-i", "in.mp4", "out.webm"},
		Stderr: "Unknown encoder 'libsvtav1'",
		Err:    inner,
	}
	msg := err.Error()
	for _, want := range []string{"ffmpeg", "-i in.mp4 out.webm", "exit status 1", "Unknown encoder"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
	if !errors.Is(err, inner) {
		t.Error("Unwrap lost the inner error")
	}
}

func TestFFmpegErrorNoStderr(t *testing.T) {
	err := &FFmpegError{Binary: "ffprobe", Args: []string{"-i", "x"}, Err: errors.New("boom")}
	if got := err.Error(); strings.HasSuffix(got, ": ") {
		t.Errorf("trailing separator in %q", got)
	}
}

func TestStderrTail(t *testing.T) {
	if got := stderrTail("  short  \n"); got != "short" {
		t.Errorf("stderrTail = %q", got)
	}
	long := strings.Repeat("x", stderrTailLimit+100) + "END"
	got := stderrTail(long)
	if len(got) != stderrTailLimit {
		t.Errorf("tail length = %d, want %d", len(got), stderrTailLimit)
	}
	if !strings.HasSuffix(got, "END") {
		t.Error("tail dropped the final bytes")
	}
}

func TestRunFFmpegMissingBinary(t *testing.T) {
	orig := ffmpegBin
	ffmpegBin = "mediasink-no-such-ffmpeg"
	defer func() { ffmpegBin = orig }()

	if _, err := runFFmpeg(context.Background(), "-version"); err != ErrFFmpegNotFound {
		t.Fatalf("expected ErrFFmpegNotFound, got %v", err)
	}
}

func TestMetadataArgsSorted(t *testing.T) {
	got := strings.Join(metadataArgs(map[string]string{"z": "1", "a": "2", "m": "3"}), " ")
	want := "-metadata a=2 -metadata m=3 -metadata z=1"
	if got != want {
		t.Errorf("metadataArgs = %q, want %q", got, want)
	}
	if metadataArgs(nil) != nil {
		t.Error("nil tags should yield nil args")
	}
}
