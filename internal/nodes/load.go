package nodes

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	// Register the decoders image.DecodeConfig needs for dimension
	// reporting on loaded images.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/mediasink/mediasink/internal/cloud/providers"
	"github.com/mediasink/mediasink/internal/events"
	"github.com/mediasink/mediasink/internal/storage"
)

// LoadedImage is one loaded image with its decoded dimensions.
type LoadedImage struct {
	LoadedFile
	Width  int
	Height int
	Format string // decoder name: "png", "jpeg", "gif"
}

// LoadImageResult groups a loaded batch by dimensions: Groups holds
// indexes into Images, one group per distinct width x height in
// first-seen order, so callers can stack compatible images together.
type LoadImageResult struct {
	Images []LoadedImage
	Groups [][]int
}

// LoadImage fetches a batch of images from the cloud destination or the
// local input directory and reports their dimensions.
func (r *Runner) LoadImage(ctx context.Context, paths []string, opts LoadOptions) (*LoadImageResult, error) {
	paths = cleanPaths(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("provide at least one file path")
	}
	if err := r.validateLoad(&opts); err != nil {
		return nil, err
	}

	provider := r.startLoad(len(paths), opts)
	files, err := r.loadFiles(ctx, paths, opts)
	if err != nil {
		return nil, err
	}

	images := make([]LoadedImage, len(files))
	for i, f := range files {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(f.Data))
		if err != nil {
			err = fmt.Errorf("decoding %s: %w", f.Name, err)
			r.bus.PublishLoadError(err.Error())
			return nil, err
		}
		images[i] = LoadedImage{LoadedFile: f, Width: cfg.Width, Height: cfg.Height, Format: format}
	}

	r.bus.PublishLoadComplete(len(images), provider)
	return &LoadImageResult{Images: images, Groups: groupByDimensions(images)}, nil
}

// LoadAudio fetches a batch of audio files from the cloud destination or
// the local input directory. With no paths given, a local file picked
// from the input directory stands in.
func (r *Runner) LoadAudio(ctx context.Context, paths []string, opts LoadOptions) ([]LoadedFile, error) {
	paths = cleanPaths(paths)
	if len(paths) == 0 && !opts.FromCloud && opts.LocalFile != "" {
		paths = []string{opts.LocalFile}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("provide at least one file path or select a local file")
	}
	if err := r.validateLoad(&opts); err != nil {
		return nil, err
	}

	provider := r.startLoad(len(paths), opts)
	files, err := r.loadFiles(ctx, paths, opts)
	if err != nil {
		return nil, err
	}

	r.bus.PublishLoadComplete(len(files), provider)
	return files, nil
}

// LoadVideo fetches one video. Only the first path is used; local videos
// resolve to a path without reading the file into memory.
func (r *Runner) LoadVideo(ctx context.Context, paths []string, opts LoadOptions) (*LoadedFile, error) {
	paths = cleanPaths(paths)
	if len(paths) == 0 && !opts.FromCloud && opts.LocalFile != "" {
		paths = []string{opts.LocalFile}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("provide at least one file path or select a local file")
	}
	if err := r.validateLoad(&opts); err != nil {
		return nil, err
	}

	provider := r.startLoad(1, opts)

	var file LoadedFile
	if opts.FromCloud {
		downloaded, err := r.transfer.DownloadMany(ctx, paths[:1], opts.Destination)
		if err != nil {
			return nil, fmt.Errorf("cloud download failed: %w", err)
		}
		file = LoadedFile{Name: downloaded[0].Filename, Data: downloaded[0].Content}
	} else {
		resolved, err := storage.ResolveInput(opts.InputDir, paths[0])
		if err != nil {
			r.bus.PublishLoadError(err.Error())
			return nil, err
		}
		file = LoadedFile{Name: paths[0], Path: resolved}
		r.bus.PublishLoadProgress(events.WhereLocal, 1, 1, paths[0])
	}

	r.bus.PublishLoadComplete(1, provider)
	return &file, nil
}

// loadFiles runs the shared fetch leg: a batch download for cloud loads
// (the engine publishes per-item progress), or per-path reads from the
// input directory with local progress events.
func (r *Runner) loadFiles(ctx context.Context, paths []string, opts LoadOptions) ([]LoadedFile, error) {
	if opts.FromCloud {
		downloaded, err := r.transfer.DownloadMany(ctx, paths, opts.Destination)
		if err != nil {
			return nil, fmt.Errorf("cloud download failed: %w", err)
		}
		files := make([]LoadedFile, len(downloaded))
		for i, d := range downloaded {
			files[i] = LoadedFile{Name: d.Filename, Data: d.Content}
		}
		return files, nil
	}

	files := make([]LoadedFile, len(paths))
	for i, p := range paths {
		resolved, data, err := storage.ReadInput(opts.InputDir, p)
		if err != nil {
			r.bus.PublishLoadError(err.Error())
			return nil, err
		}
		files[i] = LoadedFile{Name: p, Path: resolved, Data: data}
		r.bus.PublishLoadProgress(events.WhereLocal, i+1, len(paths), p)
	}
	return files, nil
}

// startLoad publishes the opening event and returns the display name used
// in subsequent events, empty for local loads.
func (r *Runner) startLoad(total int, opts LoadOptions) string {
	provider := ""
	if opts.FromCloud {
		if e, err := providers.Lookup(opts.Destination.Provider); err == nil {
			provider = e.DisplayName
		} else {
			provider = opts.Destination.Provider
		}
	}
	r.bus.PublishLoadStart(total, provider)
	return provider
}

// groupByDimensions buckets image indexes by width x height in first-seen
// order.
func groupByDimensions(images []LoadedImage) [][]int {
	var order []string
	byDim := make(map[string][]int)
	for i, img := range images {
		key := fmt.Sprintf("%dx%d", img.Width, img.Height)
		if _, ok := byDim[key]; !ok {
			order = append(order, key)
		}
		byDim[key] = append(byDim[key], i)
	}
	groups := make([][]int, len(order))
	for gi, key := range order {
		groups[gi] = byDim[key]
	}
	return groups
}

// cleanPaths trims whitespace and drops empty entries.
func cleanPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
