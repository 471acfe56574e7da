// Package sanitize provides filename sanitization for save and load paths.
//
// This package reduces user-supplied filenames to safe basenames:
//   - Directory components are stripped (Unix and Windows separators)
//   - Remaining separators and null bytes are removed
//   - Empty, "." and ".." results are rejected
//   - Names are capped at the common 255-character filesystem limit
package sanitize

import (
	"strings"

	"github.com/mediasink/mediasink/internal/constants"
)

// SanitizeFilename reduces a user-supplied filename to a safe basename.
// Returns an empty string when nothing usable remains, which callers must
// treat as "no filename provided".
//
// Examples:
//
//	SanitizeFilename("../../../etc/passwd") == "passwd"
//	SanitizeFilename("..\\windows\\system32") == "system32"
//	SanitizeFilename("..") == ""
func SanitizeFilename(filename string) string {
	if filename == "" {
		return ""
	}

	cleaned := strings.TrimSpace(filename)
	if cleaned == "" {
		return ""
	}

	// Take the component after the last separator. Both separator styles are
	// handled regardless of host OS so Windows-style traversal cannot slip
	// through on Unix.
	if idx := strings.LastIndexAny(cleaned, `/\`); idx >= 0 {
		cleaned = cleaned[idx+1:]
	}

	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return ""
	}

	// Remove any remaining separators and null bytes
	cleaned = strings.NewReplacer("/", "", `\`, "", "\x00", "").Replace(cleaned)
	if cleaned == "" {
		return ""
	}

	// Limit to a common filesystem filename length
	if runes := []rune(cleaned); len(runes) > constants.MaxFilenameLength {
		cleaned = string(runes[:constants.MaxFilenameLength])
	}

	return cleaned
}

// SplitExt splits a filename into base name and extension, keeping the dot
// on the extension. Unlike filepath.Ext this never inspects directories;
// callers are expected to pass an already-sanitized basename.
//
//	SplitExt("frame.png") == ("frame", ".png")
//	SplitExt("archive.tar.gz") == ("archive.tar", ".gz")
//	SplitExt("noext") == ("noext", "")
func SplitExt(filename string) (string, string) {
	idx := strings.LastIndex(filename, ".")
	if idx <= 0 {
		// No dot, or a leading dot (".bashrc" style names keep the whole
		// name as the base).
		return filename, ""
	}
	return filename[:idx], filename[idx:]
}
