// Package providers wires every storage backend into one registry. Callers
// resolve a backend by canonical ID or display name and get a fresh client;
// the registry also reports which backends can read objects back.
package providers

import (
	"fmt"
	"strings"

	"github.com/mediasink/mediasink/internal/cloud"
	"github.com/mediasink/mediasink/internal/cloud/providers/azure"
	"github.com/mediasink/mediasink/internal/cloud/providers/b2"
	"github.com/mediasink/mediasink/internal/cloud/providers/dropbox"
	"github.com/mediasink/mediasink/internal/cloud/providers/ftp"
	"github.com/mediasink/mediasink/internal/cloud/providers/gcs"
	"github.com/mediasink/mediasink/internal/cloud/providers/gdrive"
	"github.com/mediasink/mediasink/internal/cloud/providers/onedrive"
	"github.com/mediasink/mediasink/internal/cloud/providers/s3"
	"github.com/mediasink/mediasink/internal/cloud/providers/s3compat"
	"github.com/mediasink/mediasink/internal/cloud/providers/supabase"
	"github.com/mediasink/mediasink/internal/cloud/providers/uploadthing"
)

// Entry describes one registered backend.
type Entry struct {
	// ID is the canonical provider identifier used in destinations,
	// config files and rate-limit keys.
	ID string
	// DisplayName is the human-facing name shown in listings and results.
	DisplayName string
	// New constructs a fresh client. Clients cache authorization state,
	// so callers should reuse one client per batch rather than per item.
	New func() cloud.Uploader
}

// entries lists every backend in presentation order.
var entries = []Entry{
	{ID: "s3", DisplayName: s3.DisplayName, New: func() cloud.Uploader { return s3.New() }},
	{ID: "s3-compatible", DisplayName: s3compat.DisplayName, New: func() cloud.Uploader { return s3compat.New() }},
	{ID: "gcs", DisplayName: gcs.DisplayName, New: func() cloud.Uploader { return gcs.New() }},
	{ID: "azure", DisplayName: azure.DisplayName, New: func() cloud.Uploader { return azure.New() }},
	{ID: "b2", DisplayName: b2.DisplayName, New: func() cloud.Uploader { return b2.New() }},
	{ID: "dropbox", DisplayName: dropbox.DisplayName, New: func() cloud.Uploader { return dropbox.New() }},
	{ID: "gdrive", DisplayName: gdrive.DisplayName, New: func() cloud.Uploader { return gdrive.New() }},
	{ID: "onedrive", DisplayName: onedrive.DisplayName, New: func() cloud.Uploader { return onedrive.New() }},
	{ID: "ftp", DisplayName: ftp.DisplayName, New: func() cloud.Uploader { return ftp.New() }},
	{ID: "supabase", DisplayName: supabase.DisplayName, New: func() cloud.Uploader { return supabase.New() }},
	{ID: "uploadthing", DisplayName: uploadthing.DisplayName, New: func() cloud.Uploader { return uploadthing.New() }},
}

// byName indexes entries by lowercased ID and display name.
var byName = func() map[string]Entry {
	m := make(map[string]Entry, 2*len(entries))
	for _, e := range entries {
		m[strings.ToLower(e.ID)] = e
		m[strings.ToLower(e.DisplayName)] = e
	}
	return m
}()

// Lookup resolves a backend by canonical ID or display name,
// case-insensitively.
func Lookup(name string) (Entry, error) {
	e, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Entry{}, fmt.Errorf("unknown provider %q (supported: %s)", name, strings.Join(IDs(), ", "))
	}
	return e, nil
}

// CanonicalID maps any accepted provider name to its canonical ID.
func CanonicalID(name string) (string, error) {
	e, err := Lookup(name)
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

// New returns a fresh client for the named backend.
func New(name string) (cloud.Uploader, error) {
	e, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return e.New(), nil
}

// NewDownloader returns a client for backends that can read objects back.
func NewDownloader(name string) (cloud.Downloader, error) {
	e, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	d, ok := e.New().(cloud.Downloader)
	if !ok {
		return nil, fmt.Errorf("provider %s does not support downloads", e.DisplayName)
	}
	return d, nil
}

// CanDownload reports whether the named backend supports reading objects
// back. Unknown names report false.
func CanDownload(name string) bool {
	e, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return false
	}
	_, ok = e.New().(cloud.Downloader)
	return ok
}

// IDs returns the canonical provider IDs in presentation order.
func IDs() []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

// All returns every registry entry in presentation order.
func All() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
