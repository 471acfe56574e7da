// Package storage writes save outputs under the output directory and
// resolves load inputs under the input directory. It owns the local leg
// of every save/load operation: directory creation, free-space checks,
// and on-disk name collisions.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mediasink/mediasink/internal/constants"
	"github.com/mediasink/mediasink/internal/diskspace"
	"github.com/mediasink/mediasink/internal/util/sanitize"
)

// File is one output to be written.
type File struct {
	Name string
	Data []byte
}

// Output describes one written file.
type Output struct {
	Filename string // final basename, after collision resolution
	Path     string // absolute path on disk
	Size     int64
}

// EnsureOutputDir resolves the directory save outputs land in: baseDir
// joined with folderPath, created on demand. When the subfolder cannot
// be created the write falls back to baseDir rather than failing the
// whole save; only an unusable baseDir is an error.
func EnsureOutputDir(baseDir, folderPath string) (string, error) {
	if baseDir == "" {
		baseDir = "."
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("resolving output dir %q: %w", baseDir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir %q: %w", abs, err)
	}

	folderPath = strings.TrimSpace(folderPath)
	if folderPath == "" {
		return abs, nil
	}
	sub := filepath.Join(abs, filepath.FromSlash(folderPath))
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return abs, nil
	}
	return sub, nil
}

// WriteHook observes each file as it lands on disk.
type WriteHook func(index int, out Output)

// WriteOutputs writes files into dir, checking free space up front and
// renaming around existing files unless overwrite is set. The hook (may
// be nil) fires once per written file. When a write fails the outputs
// written so far are returned, mirroring how batch uploads report
// partial progress.
func WriteOutputs(dir string, files []File, overwrite bool, hook WriteHook) ([]Output, error) {
	if len(files) == 0 {
		return nil, nil
	}

	var total int64
	for _, f := range files {
		total += int64(len(f.Data))
	}
	probe := filepath.Join(dir, files[0].Name)
	if err := diskspace.CheckAvailableSpace(probe, total, 1+constants.DiskSpaceBufferPercent); err != nil {
		return nil, err
	}

	outputs := make([]Output, 0, len(files))
	for i, f := range files {
		name := f.Name
		if !overwrite {
			name = NextAvailableName(dir, name)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return outputs, fmt.Errorf("writing %s: %w", path, err)
		}
		out := Output{Filename: name, Path: path, Size: int64(len(f.Data))}
		outputs = append(outputs, out)
		if hook != nil {
			hook(i, out)
		}
	}
	return outputs, nil
}

// NextAvailableName returns name unchanged when nothing at dir/name
// exists, otherwise the first name_N variant that is free.
func NextAvailableName(dir, name string) string {
	if _, err := os.Lstat(filepath.Join(dir, name)); err != nil {
		return name
	}
	stem, ext := sanitize.SplitExt(name)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Lstat(filepath.Join(dir, candidate)); err != nil {
			return candidate
		}
	}
}
