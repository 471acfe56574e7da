package cloud

import (
	"mime"
	"net/url"
	"path/filepath"
	"strings"
)

// JoinKey builds an object key from path pieces, dropping empties and
// collapsing the separators so no provider ever sees "a//b" or a leading
// slash. Backslashes from Windows-style folder input are normalized too.
func JoinKey(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ReplaceAll(p, "\\", "/")
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		for _, seg := range strings.Split(p, "/") {
			if seg != "" {
				cleaned = append(cleaned, seg)
			}
		}
	}
	return strings.Join(cleaned, "/")
}

// ContentTypeFor guesses a MIME type from the filename extension,
// falling back to application/octet-stream.
func ContentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// EscapePath percent-encodes an object key for use inside a URL path or
// path-valued header. Separators stay literal.
func EscapePath(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
