package media

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AudioFormat selects the output encoding for audio saves.
type AudioFormat string

const (
	AudioWAV  AudioFormat = "wav"
	AudioFLAC AudioFormat = "flac"
	AudioMP3  AudioFormat = "mp3"
	AudioOpus AudioFormat = "opus"
)

// DefaultAudioQuality applies when the caller leaves quality empty.
// wav and flac are lossless and ignore quality entirely.
const DefaultAudioQuality = "128k"

var (
	mp3Qualities  = []string{"V0", "128k", "320k"}
	opusQualities = []string{"64k", "96k", "128k", "192k", "320k"}
)

// opusRates are the sample rates the Opus codec accepts, ascending.
var opusRates = []int{8000, 12000, 16000, 24000, 48000}

// ParseAudioFormat normalizes and validates a format name.
func ParseAudioFormat(s string) (AudioFormat, error) {
	switch f := AudioFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case AudioWAV, AudioFLAC, AudioMP3, AudioOpus:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported audio format %q (expected wav, flac, mp3 or opus)", s)
	}
}

// ValidateAudioQuality checks quality against the format's accepted
// presets. An empty quality is always valid and falls back to the
// default at encode time.
func ValidateAudioQuality(format AudioFormat, quality string) error {
	if quality == "" {
		return nil
	}
	switch format {
	case AudioMP3:
		if !containsString(mp3Qualities, quality) {
			return fmt.Errorf("for mp3, quality must be one of: %s", strings.Join(mp3Qualities, ", "))
		}
	case AudioOpus:
		if !containsString(opusQualities, quality) {
			return fmt.Errorf("for opus, quality must be one of: %s", strings.Join(opusQualities, ", "))
		}
	}
	return nil
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// snapOpusRate maps an arbitrary sample rate onto the nearest rate Opus
// accepts at or above it. Anything past 48 kHz resamples down to 48 kHz.
func snapOpusRate(rate int) int {
	if rate > 48000 {
		return 48000
	}
	for _, r := range opusRates {
		if r >= rate {
			return r
		}
	}
	return 48000
}

// EncodeAudio re-encodes the audio file at inputPath into format and
// returns the encoded bytes. Tags become container metadata. The encode
// goes through a temp file rather than a pipe so seek-dependent muxers
// (wav, flac) write correct headers.
func EncodeAudio(ctx context.Context, inputPath string, format AudioFormat, quality string, tags map[string]string) ([]byte, error) {
	if err := ValidateAudioQuality(format, quality); err != nil {
		return nil, err
	}
	if quality == "" {
		quality = DefaultAudioQuality
	}

	opusRate := 0
	if format == AudioOpus {
		info, err := Probe(ctx, inputPath)
		if err != nil {
			return nil, err
		}
		opusRate = snapOpusRate(info.SampleRate)
	}

	tmp, err := os.CreateTemp("", "mediasink-audio-*."+string(format))
	if err != nil {
		return nil, fmt.Errorf("creating temp encode file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if _, err := runFFmpeg(ctx, audioArgs(inputPath, tmpPath, format, quality, opusRate, tags)...); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("reading encoded audio: %w", err)
	}
	return data, nil
}

// audioArgs builds the ffmpeg command line for one audio encode.
func audioArgs(inputPath, outputPath string, format AudioFormat, quality string, opusRate int, tags map[string]string) []string {
	args := append(baseArgs(inputPath), "-vn")
	switch format {
	case AudioWAV:
		args = append(args, "-c:a", "pcm_s16le", "-f", "wav")
	case AudioFLAC:
		args = append(args, "-c:a", "flac", "-f", "flac")
	case AudioMP3:
		args = append(args, "-c:a", "libmp3lame")
		if quality == "V0" {
			args = append(args, "-q:a", "1")
		} else {
			args = append(args, "-b:a", quality)
		}
		args = append(args, "-f", "mp3")
	case AudioOpus:
		args = append(args, "-c:a", "libopus", "-b:a", quality, "-ar", strconv.Itoa(opusRate), "-f", "opus")
	}
	args = append(args, metadataArgs(tags)...)
	return append(args, outputPath)
}
