// Package filter provides glob and substring filtering for local file
// listings, shared by the save commands' directory expansion and the
// inputs listing.
package filter

import (
	"path/filepath"
	"strings"
)

// Config selects files from a directory listing.
type Config struct {
	// Include patterns (glob-style). Empty means include all.
	// Example: []string{"*.png", "frame_*"}
	Include []string

	// Exclude patterns (glob-style). Take precedence over Include.
	// Example: []string{"*_mask*", "tmp*"}
	Exclude []string

	// Search terms (case-insensitive substring match). A file must
	// match ALL terms to be included.
	Search []string
}

// Empty reports whether the config filters nothing.
func (c Config) Empty() bool {
	return len(c.Include) == 0 && len(c.Exclude) == 0 && len(c.Search) == 0
}

// Apply filters names, keeping their order.
func Apply(names []string, cfg Config) []string {
	if cfg.Empty() {
		return names
	}

	filtered := make([]string, 0, len(names))
	for _, name := range names {
		if matches(name, cfg) {
			filtered = append(filtered, name)
		}
	}
	return filtered
}

// matches checks one filename against the config. Patterns are tried
// against the name as given and against its base, so callers may pass
// either bare names or paths.
func matches(name string, cfg Config) bool {
	base := filepath.Base(name)

	for _, pattern := range cfg.Exclude {
		if matched, _ := filepath.Match(pattern, name); matched {
			return false
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return false
		}
	}

	if len(cfg.Include) > 0 {
		included := false
		for _, pattern := range cfg.Include {
			if matched, _ := filepath.Match(pattern, name); matched {
				included = true
				break
			}
			if matched, _ := filepath.Match(pattern, base); matched {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	lower := strings.ToLower(name)
	for _, term := range cfg.Search {
		if !strings.Contains(lower, strings.ToLower(term)) {
			return false
		}
	}

	return true
}
