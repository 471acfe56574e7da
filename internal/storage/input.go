package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveInput maps a load path onto the input directory. Absolute
// paths stand as-is; relative ones resolve against inputDir. A missing
// file is an error carrying the path that was actually checked.
func ResolveInput(inputDir, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty input path")
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(inputDir, filepath.FromSlash(name))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving input %q: %w", name, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("input file not found: %s", abs)
	}
	if info.IsDir() {
		return "", fmt.Errorf("input path is a directory: %s", abs)
	}
	return abs, nil
}

// ReadInput resolves name and returns the file's bytes with its
// absolute path.
func ReadInput(inputDir, name string) (string, []byte, error) {
	path, err := ResolveInput(inputDir, name)
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return path, data, nil
}

// ListInputs returns the non-hidden files in inputDir whose extension
// is in exts (lowercase, dot included; nil means every file), sorted by
// name. Load operations use it to enumerate selectable inputs.
func ListInputs(inputDir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("listing input dir %q: %w", inputDir, err)
	}

	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = true
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || isHiddenName(name) {
			continue
		}
		if len(allowed) > 0 && !allowed[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// isHiddenName reports whether a bare filename is a dotfile. The "." and
// ".." entries are not hidden.
func isHiddenName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
