package media

import (
	"context"
	"testing"
)

func TestParseProbeOutput(t *testing.T) {
	payload := []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720},
			{"codec_type": "audio", "codec_name": "aac", "sample_rate": "44100", "channels": 2},
			{"codec_type": "audio", "codec_name": "opus", "sample_rate": "48000", "channels": 1}
		],
		"format": {"duration": "12.480000"}
	}`)

	info, err := parseProbeOutput(payload)
	if err != nil {
		t.Fatalf("parseProbeOutput: %v", err)
	}
	if info.Duration != 12.48 {
		t.Errorf("Duration = %v, want 12.48", info.Duration)
	}
	if info.Width != 1280 || info.Height != 720 {
		t.Errorf("frame = %dx%d, want 1280x720", info.Width, info.Height)
	}
	if info.VideoCodec != "h264" {
		t.Errorf("VideoCodec = %q", info.VideoCodec)
	}
	// Only the first audio stream counts.
	if info.AudioCodec != "aac" || info.SampleRate != 44100 || info.Channels != 2 {
		t.Errorf("audio = %s/%d/%d, want aac/44100/2", info.AudioCodec, info.SampleRate, info.Channels)
	}
}

func TestParseProbeOutputAudioOnly(t *testing.T) {
	payload := []byte(`{
		"streams": [{"codec_type": "audio", "codec_name": "flac", "sample_rate": "22050", "channels": 2}],
		"format": {}
	}`)

	info, err := parseProbeOutput(payload)
	if err != nil {
		t.Fatalf("parseProbeOutput: %v", err)
	}
	if info.Duration != 0 {
		t.Errorf("Duration = %v, want 0", info.Duration)
	}
	if info.SampleRate != 22050 {
		t.Errorf("SampleRate = %d, want 22050", info.SampleRate)
	}
	if info.Width != 0 || info.VideoCodec != "" {
		t.Errorf("unexpected video stream: %dx%d %s", info.Width, info.Height, info.VideoCodec)
	}
}

func TestParseProbeOutputGarbage(t *testing.T) {
	if _, err := parseProbeOutput([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestProbeMissingBinary(t *testing.T) {
	orig := ffprobeBin
	ffprobeBin = "mediasink-no-such-ffprobe"
	defer func() { ffprobeBin = orig }()

	if _, err := Probe(context.Background(), "in.mp4"); err != ErrFFprobeNotFound {
		t.Fatalf("expected ErrFFprobeNotFound, got %v", err)
	}
}
