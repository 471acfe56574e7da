package transfer

import (
	"context"

	"github.com/mediasink/mediasink/internal/cloud"
	"github.com/mediasink/mediasink/internal/cloud/providers"
	"github.com/mediasink/mediasink/internal/events"
	"github.com/mediasink/mediasink/internal/models"
)

// Engine drives the cloud leg of a batch: it resolves the provider once,
// runs the transfer sequentially, and republishes the provider's progress
// hooks as bus events. The first failing item aborts the batch; results
// for the items that already succeeded are still returned.
type Engine struct {
	bus     *events.EventBus
	tracker *Tracker

	// Provider resolution, swappable in tests.
	newUploader   func(name string) (cloud.Uploader, error)
	newDownloader func(name string) (cloud.Downloader, error)
}

// NewEngine returns an engine publishing on bus. A nil bus is valid and
// reports nothing.
func NewEngine(bus *events.EventBus) *Engine {
	return &Engine{
		bus:           bus,
		tracker:       NewTracker(bus),
		newUploader:   providers.New,
		newDownloader: providers.NewDownloader,
	}
}

// Tracker exposes the per-item observer for progress UIs.
func (e *Engine) Tracker() *Tracker { return e.tracker }

// UploadMany stores items at dest. Byte counters on the bus are
// batch-cumulative; per-item progress events carry the destination path
// of the finished item.
func (e *Engine) UploadMany(ctx context.Context, items []models.FileItem, dest models.Destination) ([]models.UploadResult, error) {
	up, err := e.newUploader(dest.Provider)
	if err != nil {
		if e.bus != nil {
			e.bus.PublishSaveError(err.Error())
		}
		return nil, err
	}
	display := displayName(dest.Provider)

	var batchTotal int64
	tasks := make([]*Task, len(items))
	for i, item := range items {
		size := int64(len(item.Content))
		batchTotal += size
		tasks[i] = e.tracker.Track(TaskTypeUpload, item.Filename, size)
	}

	var sent int64
	total := len(items)
	hooks := cloud.Hooks{
		OnBytes: func(bp cloud.ByteProgress) {
			sent += bp.Delta
			e.tracker.Progress(tasks[bp.Index].ID, bp.Sent, bp.Total)
			if e.bus != nil {
				e.bus.PublishTransferBytes(display, bp.Filename, bp.Path, bp.Index, bp.Delta, sent, batchTotal)
			}
		},
		OnItem: func(index int, filename, path string) {
			e.tracker.Complete(tasks[index].ID)
			if e.bus != nil {
				e.bus.PublishSaveProgress(events.WhereCloud, index+1, total, path)
			}
		},
	}

	results, err := up.UploadMany(ctx, items, dest, hooks)
	if err != nil {
		// The failed item is the first one without a result.
		if len(results) < len(tasks) {
			e.tracker.Fail(tasks[len(results)].ID, err)
		}
		e.tracker.CancelPending()
		if e.bus != nil {
			e.bus.PublishSaveError(err.Error())
		}
		return results, err
	}
	return results, nil
}

// DownloadMany fetches keys from dest. Sizes are unknown upfront, so the
// batch byte total stays 0 and tasks learn their size mid-flight.
func (e *Engine) DownloadMany(ctx context.Context, keys []string, dest models.Destination) ([]models.DownloadedFile, error) {
	down, err := e.newDownloader(dest.Provider)
	if err != nil {
		if e.bus != nil {
			e.bus.PublishLoadError(err.Error())
		}
		return nil, err
	}
	display := displayName(dest.Provider)

	tasks := make([]*Task, len(keys))
	for i, key := range keys {
		tasks[i] = e.tracker.Track(TaskTypeDownload, key, 0)
	}

	var sent int64
	total := len(keys)
	hooks := cloud.Hooks{
		OnBytes: func(bp cloud.ByteProgress) {
			sent += bp.Delta
			e.tracker.Progress(tasks[bp.Index].ID, bp.Sent, bp.Total)
			if e.bus != nil {
				e.bus.PublishTransferBytes(display, bp.Filename, bp.Path, bp.Index, bp.Delta, sent, 0)
			}
		},
		OnItem: func(index int, filename, path string) {
			e.tracker.Complete(tasks[index].ID)
			if e.bus != nil {
				e.bus.PublishLoadProgress(events.WhereCloud, index+1, total, path)
			}
		},
	}

	files, err := down.DownloadMany(ctx, keys, dest, hooks)
	if err != nil {
		if len(files) < len(tasks) {
			e.tracker.Fail(tasks[len(files)].ID, err)
		}
		e.tracker.CancelPending()
		if e.bus != nil {
			e.bus.PublishLoadError(err.Error())
		}
		return files, err
	}
	return files, nil
}

// displayName maps a provider ID to its display name for event payloads,
// passing unknown names through untouched.
func displayName(provider string) string {
	if e, err := providers.Lookup(provider); err == nil {
		return e.DisplayName
	}
	return provider
}
