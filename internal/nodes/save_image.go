package nodes

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/mediasink/mediasink/internal/media"
	"github.com/mediasink/mediasink/internal/storage"
)

// SaveImage encodes a batch of images as PNG, embeds the workflow graph
// and extra entries as text chunks unless metadata is suppressed, and
// saves them to the configured targets. Batch items share one resolved
// name with a _NNN suffix when the batch has more than one image.
func (r *Runner) SaveImage(ctx context.Context, images []image.Image, opts SaveOptions) (*SaveResult, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("provide at least one image")
	}
	if err := r.validateSave(&opts); err != nil {
		return nil, err
	}

	subfolder, prefixBase, now := r.resolveNaming(opts)
	chunks := metadataChunks(opts)
	provider := r.startSave(len(images), opts)

	files := make([]storage.File, len(images))
	for i, img := range images {
		data, err := encodePNG(img, chunks)
		if err != nil {
			err = fmt.Errorf("encoding image %d: %w", i+1, err)
			r.bus.PublishSaveError(err.Error())
			return nil, err
		}
		files[i] = storage.File{
			Name: itemName(opts, prefixBase, ".png", i, len(images), now),
			Data: data,
		}
	}

	return r.saveFiles(ctx, subfolder, files, provider, opts)
}

// encodePNG renders img as PNG with the given text chunks inserted after
// the header.
func encodePNG(img image.Image, chunks []media.TextChunk) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return buf.Bytes(), nil
	}
	return media.InjectText(buf.Bytes(), chunks)
}
