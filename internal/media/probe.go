package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// ProbeInfo carries the container and stream facts save/load operations
// need: the opus encoder reads SampleRate, video fingerprinting reads
// Duration and the frame size.
type ProbeInfo struct {
	Duration   float64 // seconds, 0 when the container does not report it
	SampleRate int     // first audio stream, 0 when absent
	Channels   int
	Width      int // first video stream, 0 when absent
	Height     int
	VideoCodec string
	AudioCodec string
}

// Probe runs ffprobe over path.
func Probe(ctx context.Context, path string) (*ProbeInfo, error) {
	out, err := runFFprobe(ctx,
		"-hide_banner", "-loglevel", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path)
	if err != nil {
		return nil, err
	}
	return parseProbeOutput(out)
}

func parseProbeOutput(data []byte) (*ProbeInfo, error) {
	var raw struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
			Width      int    `json:"width"`
			Height     int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unexpected ffprobe output: %w", err)
	}

	info := &ProbeInfo{}
	if raw.Format.Duration != "" {
		if d, err := strconv.ParseFloat(raw.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "audio":
			if info.AudioCodec != "" {
				continue
			}
			info.AudioCodec = s.CodecName
			info.Channels = s.Channels
			if sr, err := strconv.Atoi(s.SampleRate); err == nil {
				info.SampleRate = sr
			}
		case "video":
			if info.VideoCodec != "" {
				continue
			}
			info.VideoCodec = s.CodecName
			info.Width = s.Width
			info.Height = s.Height
		}
	}
	return info, nil
}
