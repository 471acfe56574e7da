package nodes

import (
	"context"

	"github.com/mediasink/mediasink/internal/media"
	"github.com/mediasink/mediasink/internal/storage"
)

// SaveAudio transcodes one audio file to the requested format and saves
// it to the configured targets. Quality is format-specific ("V0", "128k",
// "320k" for mp3; "64k".."320k" for opus) and defaults to 128k; wav and
// flac ignore it. Metadata lands as container tags.
func (r *Runner) SaveAudio(ctx context.Context, inputPath string, format media.AudioFormat, quality string, opts SaveOptions) (*SaveResult, error) {
	if err := r.validateSave(&opts); err != nil {
		return nil, err
	}
	if err := media.ValidateAudioQuality(format, quality); err != nil {
		return nil, err
	}

	subfolder, prefixBase, now := r.resolveNaming(opts)
	provider := r.startSave(1, opts)

	data, err := media.EncodeAudio(ctx, inputPath, format, quality, metadataTags(opts))
	if err != nil {
		r.bus.PublishSaveError(err.Error())
		return nil, err
	}

	files := []storage.File{{
		Name: itemName(opts, prefixBase, "."+string(format), 0, 1, now),
		Data: data,
	}}
	return r.saveFiles(ctx, subfolder, files, provider, opts)
}

// SaveMP3 is SaveAudio fixed to the mp3 format.
func (r *Runner) SaveMP3(ctx context.Context, inputPath, quality string, opts SaveOptions) (*SaveResult, error) {
	return r.SaveAudio(ctx, inputPath, media.AudioMP3, quality, opts)
}

// SaveOpus is SaveAudio fixed to the opus format. The sample rate snaps
// up to the nearest rate Opus supports.
func (r *Runner) SaveOpus(ctx context.Context, inputPath, quality string, opts SaveOptions) (*SaveResult, error) {
	return r.SaveAudio(ctx, inputPath, media.AudioOpus, quality, opts)
}
