// Package nodes implements the save and load operations: images, audio,
// video and workflow definitions, written to local disk and/or a cloud
// destination. Each operation validates its inputs, resolves output names,
// runs the local and cloud legs and publishes the lifecycle events that
// progress surfaces subscribe to.
package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/mediasink/mediasink/internal/cloud/providers"
	"github.com/mediasink/mediasink/internal/events"
	"github.com/mediasink/mediasink/internal/logging"
	"github.com/mediasink/mediasink/internal/media"
	"github.com/mediasink/mediasink/internal/models"
	"github.com/mediasink/mediasink/internal/naming"
	"github.com/mediasink/mediasink/internal/storage"
	"github.com/mediasink/mediasink/internal/validation"
)

// transferer is the slice of the transfer engine the operations need.
// Tests substitute a fake; production passes *transfer.Engine.
type transferer interface {
	UploadMany(ctx context.Context, items []models.FileItem, dest models.Destination) ([]models.UploadResult, error)
	DownloadMany(ctx context.Context, keys []string, dest models.Destination) ([]models.DownloadedFile, error)
}

// Runner executes save and load operations against a transfer engine
// and publishes their lifecycle on the event bus.
type Runner struct {
	bus      *events.EventBus
	transfer transferer
	log      *logging.Logger
	now      func() time.Time
}

// NewRunner wires a runner to its event bus and transfer engine. The
// engine must publish on the same bus so cloud-leg progress and save/load
// error events interleave correctly with the runner's own.
func NewRunner(bus *events.EventBus, transfer transferer, log *logging.Logger) *Runner {
	return &Runner{bus: bus, transfer: transfer, log: log, now: time.Now}
}

// SaveOptions carries the inputs shared by every save operation.
type SaveOptions struct {
	SaveLocal   bool
	SaveCloud   bool
	Destination models.Destination

	// OutputDir is the base directory for local saves; LocalFolderPath is
	// an optional subfolder under it. Video saves also render into
	// OutputDir when SaveLocal is off and remove the file after upload.
	OutputDir       string
	LocalFolderPath string
	Overwrite       bool

	// Naming, first non-empty wins: Filename verbatim (sanitized, batch
	// suffixed), CustomName plus the default extension, else Prefix plus
	// a random UUID.
	Filename   string
	CustomName string
	Prefix     string

	// GraphJSON is the raw workflow graph, embedded verbatim as the
	// "prompt" metadata value and pretty-printed into workflow documents.
	// Graph is its parsed form used for %node.field% filename tokens.
	GraphJSON []byte
	Graph     naming.Graph

	// Extra holds additional metadata entries; each value is written
	// JSON-encoded under its key. NoMetadata suppresses all embedding.
	Extra      map[string]json.RawMessage
	NoMetadata bool
}

// SaveResult reports what a save produced on each leg.
type SaveResult struct {
	// Filenames are the resolved output names, one per item, before any
	// collision renaming on the local leg.
	Filenames []string
	Local     []storage.Output
	Cloud     []models.UploadResult
}

// LoadOptions carries the inputs shared by every load operation.
type LoadOptions struct {
	// FromCloud selects the cloud leg; otherwise paths resolve against
	// InputDir on local disk.
	FromCloud   bool
	Destination models.Destination
	InputDir    string
	// LocalFile stands in when no paths are given on a local audio or
	// video load, picked from the input directory listing.
	LocalFile string
}

// LoadedFile is one object a load produced. Cloud loads fill Data; local
// loads fill Path and Data, except video which leaves Data nil so large
// files are not slurped into memory.
type LoadedFile struct {
	Name string // filename or object key as requested
	Path string // absolute local path, empty for cloud loads
	Data []byte
}

// validateSave rejects impossible target combinations before any events
// fire, and normalizes the provider to its canonical ID.
func (r *Runner) validateSave(opts *SaveOptions) error {
	if err := validation.ValidateSaveTargets(opts.SaveLocal, opts.SaveCloud, opts.Destination); err != nil {
		return err
	}
	if opts.SaveCloud {
		id, err := providers.CanonicalID(opts.Destination.Provider)
		if err != nil {
			return err
		}
		opts.Destination.Provider = id
	}
	return nil
}

// validateLoad mirrors validateSave for the load side.
func (r *Runner) validateLoad(opts *LoadOptions) error {
	if !opts.FromCloud {
		return nil
	}
	if err := validation.ValidateDestination(opts.Destination); err != nil {
		return err
	}
	id, err := providers.CanonicalID(opts.Destination.Provider)
	if err != nil {
		return err
	}
	opts.Destination.Provider = id
	return nil
}

// startSave publishes the opening event and returns the display name used
// in subsequent events, empty for local-only saves.
func (r *Runner) startSave(total int, opts SaveOptions) string {
	provider := ""
	if opts.SaveCloud {
		if e, err := providers.Lookup(opts.Destination.Provider); err == nil {
			provider = e.DisplayName
		} else {
			provider = opts.Destination.Provider
		}
	}
	r.bus.PublishSaveStart(total, provider)
	return provider
}

// saveFiles runs the local then cloud legs for prepared in-memory files
// and closes the batch with a complete event. The caller has already
// published the start event. On failure the error event is published (the
// engine publishes its own for cloud failures) and no complete event fires.
func (r *Runner) saveFiles(ctx context.Context, subfolder string, files []storage.File, provider string, opts SaveOptions) (*SaveResult, error) {
	res := &SaveResult{Filenames: make([]string, len(files))}
	for i, f := range files {
		res.Filenames[i] = f.Name
	}

	if opts.SaveLocal {
		dir, err := storage.EnsureOutputDir(opts.OutputDir, joinFolder(subfolder, opts.LocalFolderPath))
		if err != nil {
			r.bus.PublishSaveError(err.Error())
			return res, err
		}
		outputs, err := storage.WriteOutputs(dir, files, opts.Overwrite, func(i int, out storage.Output) {
			r.bus.PublishSaveProgress(events.WhereLocal, i+1, len(files), out.Filename)
		})
		res.Local = outputs
		if err != nil {
			r.bus.PublishSaveError(err.Error())
			return res, err
		}
	}

	if opts.SaveCloud {
		items := make([]models.FileItem, len(files))
		for i, f := range files {
			items[i] = models.FileItem{Filename: f.Name, Content: f.Data}
		}
		uploads, err := r.transfer.UploadMany(ctx, items, opts.Destination)
		res.Cloud = uploads
		if err != nil {
			return res, fmt.Errorf("cloud upload failed: %w", err)
		}
	}

	r.bus.PublishSaveComplete(len(res.Local), len(res.Cloud), provider)
	return res, nil
}

// resolveNaming expands tokens in the configured prefix and splits off its
// subfolder part. The returned base feeds naming.BuildFilename per item.
func (r *Runner) resolveNaming(opts SaveOptions) (subfolder, prefixBase string, now time.Time) {
	now = r.now()
	expanded := naming.ExpandTokens(opts.Prefix, opts.Graph, now)
	subfolder, prefixBase = naming.SplitPrefix(expanded)
	return subfolder, prefixBase, now
}

// itemName resolves the output filename for one batch item.
func itemName(opts SaveOptions, prefixBase, defaultExt string, index, total int, now time.Time) string {
	return naming.BuildFilename(naming.Options{
		Filename:   opts.Filename,
		CustomName: opts.CustomName,
		Prefix:     prefixBase,
		DefaultExt: defaultExt,
		BatchIndex: index,
		BatchSize:  total,
		Graph:      opts.Graph,
		Now:        now,
	})
}

// metadataTags renders the graph and extra entries as flat string tags for
// container-level metadata (ffmpeg -metadata). Values are JSON-encoded the
// same way PNG text chunks carry them.
func metadataTags(opts SaveOptions) map[string]string {
	if opts.NoMetadata {
		return nil
	}
	tags := make(map[string]string)
	if len(opts.GraphJSON) > 0 {
		tags["prompt"] = string(opts.GraphJSON)
	}
	for k, v := range opts.Extra {
		tags[k] = string(v)
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// metadataChunks renders the same metadata as PNG text chunks, prompt
// first then extra keys in sorted order.
func metadataChunks(opts SaveOptions) []media.TextChunk {
	if opts.NoMetadata {
		return nil
	}
	var chunks []media.TextChunk
	if len(opts.GraphJSON) > 0 {
		chunks = append(chunks, media.TextChunk{Keyword: "prompt", Text: string(opts.GraphJSON)})
	}
	keys := make([]string, 0, len(opts.Extra))
	for k := range opts.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		chunks = append(chunks, media.TextChunk{Keyword: k, Text: string(opts.Extra[k])})
	}
	return chunks
}

// joinFolder joins the prefix-derived subfolder with the configured local
// folder path, slash-separated; either part may be empty.
func joinFolder(subfolder, localFolder string) string {
	return path.Join(subfolder, localFolder)
}
