package media

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// WEBMCodec selects the video encoder for WEBM saves.
type WEBMCodec string

const (
	WEBMVP9 WEBMCodec = "vp9"
	WEBMAV1 WEBMCodec = "av1"
)

// DefaultCRF is the constant-rate factor used when the caller passes 0.
const DefaultCRF = 32.0

// VideoContainer selects the output container for general video saves.
// Auto keeps the input's container.
type VideoContainer string

const (
	ContainerAuto VideoContainer = "auto"
	ContainerMP4  VideoContainer = "mp4"
	ContainerMKV  VideoContainer = "mkv"
	ContainerMOV  VideoContainer = "mov"
	ContainerWEBM VideoContainer = "webm"
)

// VideoCodec selects the encoder for general video saves. Auto copies
// the source streams, except into webm, which only carries VP8/VP9/AV1
// and therefore re-encodes to VP9.
type VideoCodec string

const (
	CodecAuto VideoCodec = "auto"
	CodecH264 VideoCodec = "h264"
	CodecVP9  VideoCodec = "vp9"
	CodecAV1  VideoCodec = "av1"
)

// ParseWEBMCodec normalizes and validates a WEBM codec name.
func ParseWEBMCodec(s string) (WEBMCodec, error) {
	switch c := WEBMCodec(strings.ToLower(strings.TrimSpace(s))); c {
	case WEBMVP9, WEBMAV1:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported webm codec %q (expected vp9 or av1)", s)
	}
}

// ParseVideoContainer normalizes and validates a container name.
func ParseVideoContainer(s string) (VideoContainer, error) {
	switch c := VideoContainer(strings.ToLower(strings.TrimSpace(s))); c {
	case ContainerAuto, ContainerMP4, ContainerMKV, ContainerMOV, ContainerWEBM:
		return c, nil
	case "":
		return ContainerAuto, nil
	default:
		return "", fmt.Errorf("unsupported video container %q (expected auto, mp4, mkv, mov or webm)", s)
	}
}

// ParseVideoCodec normalizes and validates a codec name.
func ParseVideoCodec(s string) (VideoCodec, error) {
	switch c := VideoCodec(strings.ToLower(strings.TrimSpace(s))); c {
	case CodecAuto, CodecH264, CodecVP9, CodecAV1:
		return c, nil
	case "":
		return CodecAuto, nil
	default:
		return "", fmt.Errorf("unsupported video codec %q (expected auto, h264, vp9 or av1)", s)
	}
}

// ContainerExtension resolves the filename extension for a container,
// deriving auto from the input's own extension.
func ContainerExtension(container VideoContainer, inputPath string) string {
	if container != ContainerAuto {
		return string(container)
	}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(inputPath)), "."); ext != "" {
		return ext
	}
	return "mp4"
}

// EncodeWEBM re-encodes the video at inputPath into a WEBM file at
// outputPath. A crf of 0 falls back to the default.
func EncodeWEBM(ctx context.Context, inputPath, outputPath string, codec WEBMCodec, crf float64, tags map[string]string) error {
	_, err := runFFmpeg(ctx, webmArgs(inputPath, outputPath, codec, crf, tags)...)
	return err
}

func webmArgs(inputPath, outputPath string, codec WEBMCodec, crf float64, tags map[string]string) []string {
	if crf <= 0 {
		crf = DefaultCRF
	}
	args := baseArgs(inputPath)
	switch codec {
	case WEBMAV1:
		args = append(args, "-c:v", "libsvtav1", "-pix_fmt", "yuv420p10le", "-preset", "6")
	default:
		args = append(args, "-c:v", "libvpx-vp9", "-pix_fmt", "yuv420p")
	}
	args = append(args, "-b:v", "0", "-crf", formatCRF(crf))
	args = append(args, metadataArgs(tags)...)
	return append(args, "-f", "webm", outputPath)
}

func formatCRF(crf float64) string {
	return strconv.FormatFloat(crf, 'f', -1, 64)
}

// SaveVideo writes the video at inputPath into the chosen container at
// outputPath. With CodecAuto the streams are copied unchanged wherever
// the container allows it.
func SaveVideo(ctx context.Context, inputPath, outputPath string, container VideoContainer, codec VideoCodec, tags map[string]string) error {
	_, err := runFFmpeg(ctx, videoArgs(inputPath, outputPath, container, codec, tags)...)
	return err
}

func videoArgs(inputPath, outputPath string, container VideoContainer, codec VideoCodec, tags map[string]string) []string {
	if codec == CodecAuto && container == ContainerWEBM {
		codec = CodecVP9
	}

	args := baseArgs(inputPath)
	switch codec {
	case CodecAuto:
		args = append(args, "-c", "copy")
	case CodecH264:
		args = append(args, "-c:v", "libx264", "-pix_fmt", "yuv420p")
	case CodecVP9:
		args = append(args, "-c:v", "libvpx-vp9", "-pix_fmt", "yuv420p", "-b:v", "0", "-crf", formatCRF(DefaultCRF))
	case CodecAV1:
		args = append(args, "-c:v", "libsvtav1", "-pix_fmt", "yuv420p10le", "-preset", "6", "-crf", formatCRF(DefaultCRF))
	}
	if codec != CodecAuto {
		if container == ContainerWEBM {
			// webm audio must be Opus or Vorbis, so the source
			// track cannot be copied.
			args = append(args, "-c:a", "libopus")
		} else {
			args = append(args, "-c:a", "copy")
		}
	}
	args = append(args, metadataArgs(tags)...)
	if f := containerFormat(container); f != "" {
		args = append(args, "-f", f)
	}
	return append(args, outputPath)
}

// containerFormat maps a container to ffmpeg's muxer name. Auto returns
// empty so ffmpeg infers the muxer from the output extension.
func containerFormat(container VideoContainer) string {
	switch container {
	case ContainerMP4:
		return "mp4"
	case ContainerMKV:
		return "matroska"
	case ContainerMOV:
		return "mov"
	case ContainerWEBM:
		return "webm"
	default:
		return ""
	}
}
