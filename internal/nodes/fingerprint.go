package nodes

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strconv"
	"strings"

	"github.com/mediasink/mediasink/internal/storage"
)

// Fingerprint identifies a load request for change detection: equal
// fingerprints mean repeating the request would produce the same result.
// The credential never participates, so rotating a key does not change
// the fingerprint.
func Fingerprint(paths []string, opts LoadOptions) string {
	h := sha256.New()
	for _, part := range []string{
		strconv.FormatBool(opts.FromCloud),
		strings.Join(cleanPaths(paths), "\n"),
		opts.Destination.Provider,
		opts.Destination.Locator,
		opts.Destination.FolderPath,
		opts.LocalFile,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FingerprintVideo identifies a video load request. Cloud objects can
// change behind a fixed key, so cloud requests fingerprint to a fresh
// random token every time; local requests hash the resolved path and its
// modification time, changing only when the file does.
func FingerprintVideo(paths []string, opts LoadOptions) string {
	if opts.FromCloud {
		return randomToken()
	}
	paths = cleanPaths(paths)
	if len(paths) == 0 && opts.LocalFile != "" {
		paths = []string{opts.LocalFile}
	}
	if len(paths) == 0 {
		return randomToken()
	}
	resolved, err := storage.ResolveInput(opts.InputDir, paths[0])
	if err != nil {
		return randomToken()
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return randomToken()
	}
	h := sha256.New()
	h.Write([]byte(resolved))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// randomToken returns 8 random bytes hex-encoded.
func randomToken() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
