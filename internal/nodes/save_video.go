package nodes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mediasink/mediasink/internal/events"
	"github.com/mediasink/mediasink/internal/media"
	"github.com/mediasink/mediasink/internal/models"
	"github.com/mediasink/mediasink/internal/storage"
)

// SaveVideo remuxes or re-encodes one video into the chosen container and
// saves it to the configured targets. The file always renders into the
// output directory first; when local saving is off it is removed again
// after the upload.
func (r *Runner) SaveVideo(ctx context.Context, inputPath string, container media.VideoContainer, codec media.VideoCodec, opts SaveOptions) (*SaveResult, error) {
	if err := r.validateSave(&opts); err != nil {
		return nil, err
	}
	ext := "." + media.ContainerExtension(container, inputPath)
	return r.saveRenderedVideo(ctx, ext, opts, func(outPath string) error {
		return media.SaveVideo(ctx, inputPath, outPath, container, codec, metadataTags(opts))
	})
}

// SaveWEBM re-encodes one video as WEBM with the chosen codec and CRF and
// saves it to the configured targets.
func (r *Runner) SaveWEBM(ctx context.Context, inputPath string, codec media.WEBMCodec, crf float64, opts SaveOptions) (*SaveResult, error) {
	if err := r.validateSave(&opts); err != nil {
		return nil, err
	}
	return r.saveRenderedVideo(ctx, ".webm", opts, func(outPath string) error {
		return media.EncodeWEBM(ctx, inputPath, outPath, codec, crf, metadataTags(opts))
	})
}

// saveRenderedVideo runs the render-then-distribute flow shared by the
// video saves. Unlike image and audio saves the encoder writes straight
// to disk, so the local leg is a stat rather than a write and the cloud
// leg reads the rendered file back.
func (r *Runner) saveRenderedVideo(ctx context.Context, ext string, opts SaveOptions, render func(outPath string) error) (*SaveResult, error) {
	subfolder, prefixBase, now := r.resolveNaming(opts)
	provider := r.startSave(1, opts)

	dir, err := storage.EnsureOutputDir(opts.OutputDir, joinFolder(subfolder, opts.LocalFolderPath))
	if err != nil {
		r.bus.PublishSaveError(err.Error())
		return nil, err
	}
	name := itemName(opts, prefixBase, ext, 0, 1, now)
	if !opts.Overwrite {
		name = storage.NextAvailableName(dir, name)
	}
	outPath := filepath.Join(dir, name)

	if err := render(outPath); err != nil {
		r.bus.PublishSaveError(err.Error())
		return nil, err
	}
	if !opts.SaveLocal {
		defer os.Remove(outPath)
	}

	res := &SaveResult{Filenames: []string{name}}
	if opts.SaveLocal {
		info, err := os.Stat(outPath)
		if err != nil {
			r.bus.PublishSaveError(err.Error())
			return res, err
		}
		res.Local = []storage.Output{{Filename: name, Path: outPath, Size: info.Size()}}
		r.bus.PublishSaveProgress(events.WhereLocal, 1, 1, name)
	}

	if opts.SaveCloud {
		data, err := os.ReadFile(outPath)
		if err != nil {
			r.bus.PublishSaveError(err.Error())
			return res, err
		}
		uploads, err := r.transfer.UploadMany(ctx, []models.FileItem{{Filename: name, Content: data}}, opts.Destination)
		res.Cloud = uploads
		if err != nil {
			return res, fmt.Errorf("cloud upload failed: %w", err)
		}
	}

	r.bus.PublishSaveComplete(len(res.Local), len(res.Cloud), provider)
	return res, nil
}
