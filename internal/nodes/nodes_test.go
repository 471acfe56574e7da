package nodes

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"testing"

	"github.com/mediasink/mediasink/internal/events"
	"github.com/mediasink/mediasink/internal/logging"
	"github.com/mediasink/mediasink/internal/models"
)

// fakeTransfer plays transfer engine: it records what it was asked to
// move and answers with canned results.
type fakeTransfer struct {
	uploadItems  []models.FileItem
	uploadDest   models.Destination
	uploadErr    error
	downloads    map[string][]byte // key -> content, "payload-<key>" when absent
	downloadKeys []string
	downloadDest models.Destination
	downloadErr  error
}

func (f *fakeTransfer) UploadMany(ctx context.Context, items []models.FileItem, dest models.Destination) ([]models.UploadResult, error) {
	f.uploadItems = items
	f.uploadDest = dest
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	results := make([]models.UploadResult, len(items))
	for i, item := range items {
		results[i] = models.UploadResult{Provider: dest.Provider, Path: item.Filename}
	}
	return results, nil
}

func (f *fakeTransfer) DownloadMany(ctx context.Context, keys []string, dest models.Destination) ([]models.DownloadedFile, error) {
	f.downloadKeys = keys
	f.downloadDest = dest
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	files := make([]models.DownloadedFile, len(keys))
	for i, key := range keys {
		content, ok := f.downloads[key]
		if !ok {
			content = []byte("payload-" + key)
		}
		files[i] = models.DownloadedFile{Filename: key, Content: content}
	}
	return files, nil
}

func newTestRunner(t *testing.T, fake *fakeTransfer) (*Runner, <-chan events.Event) {
	t.Helper()
	bus := events.NewEventBus(256)
	t.Cleanup(bus.Close)
	ch := bus.SubscribeAll()
	return NewRunner(bus, fake, logging.NewLogger(io.Discard)), ch
}

func drainEvents(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(evs []events.Event) []events.EventType {
	types := make([]events.EventType, len(evs))
	for i, ev := range evs {
		types[i] = ev.Type()
	}
	return types
}

func hasEvent(evs []events.Event, want events.EventType) bool {
	for _, ev := range evs {
		if ev.Type() == want {
			return true
		}
	}
	return false
}

// pngBytes encodes a blank w x h PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encoding test png: %v", err)
	}
	return buf.Bytes()
}
