// Package cloud defines the provider contract shared by every storage
// backend: the Uploader/Downloader interfaces, the progress hook types
// batch callers pass in, and small helpers (object key joining, content
// type guessing, chunked byte metering) every provider needs.
package cloud

import (
	"context"

	"github.com/mediasink/mediasink/internal/models"
)

// ByteProgress is one byte-counter sample emitted while a single item
// moves. Delta is the bytes moved since the previous sample; Sent the
// running total for this item; Total the item size (0 when unknown, e.g.
// chunked downloads without a Content-Length).
type ByteProgress struct {
	Delta    int64
	Sent     int64
	Total    int64
	Index    int
	Filename string
	Path     string
}

// Hooks carries the optional progress callbacks for a batch transfer.
// The zero value is valid and reports nothing. Providers invoke OnItem
// once per finished item and OnBytes roughly once per ChunkSize bytes.
type Hooks struct {
	OnItem  func(index int, filename, path string)
	OnBytes func(bp ByteProgress)
}

// ItemDone reports a finished item. Safe on the zero value.
func (h Hooks) ItemDone(index int, filename, path string) {
	if h.OnItem != nil {
		h.OnItem(index, filename, path)
	}
}

// Bytes reports a byte-counter sample. Safe on the zero value.
func (h Hooks) Bytes(bp ByteProgress) {
	if h.OnBytes != nil {
		h.OnBytes(bp)
	}
}

// Uploader stores in-memory files at a destination. Implementations parse
// dest.Locator and dest.Credential themselves; a malformed locator or
// credential is reported as an error from the first call, never a panic.
//
// UploadMany is the primary entry point: it validates the destination
// once, then stores items sequentially, stopping at the first failure.
// The returned slice holds the results of the items that succeeded, in
// order, even when an error cut the batch short.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string, dest models.Destination) (models.UploadResult, error)
	UploadMany(ctx context.Context, items []models.FileItem, dest models.Destination, hooks Hooks) ([]models.UploadResult, error)
}

// Downloader fetches objects from a destination by key. Keys are
// interpreted the way the matching Uploader writes them: relative keys
// resolve under the destination's base prefix and folder path.
//
// Not every backend can read back what it writes; the provider registry
// reports which ones implement Downloader.
type Downloader interface {
	Download(ctx context.Context, key string, dest models.Destination) (models.DownloadedFile, error)
	DownloadMany(ctx context.Context, keys []string, dest models.Destination, hooks Hooks) ([]models.DownloadedFile, error)
}
