package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mediasink/mediasink/internal/events"
	"github.com/mediasink/mediasink/internal/media"
	"github.com/mediasink/mediasink/internal/models"
	"github.com/mediasink/mediasink/internal/validation"
)

func testImages(n int) []image.Image {
	imgs := make([]image.Image, n)
	for i := range imgs {
		imgs[i] = image.NewRGBA(image.Rect(0, 0, 4, 4))
	}
	return imgs
}

func TestSaveImageLocal(t *testing.T) {
	fake := &fakeTransfer{}
	r, ch := newTestRunner(t, fake)
	dir := t.TempDir()

	res, err := r.SaveImage(context.Background(), testImages(2), SaveOptions{
		SaveLocal:  true,
		OutputDir:  dir,
		CustomName: "frame",
	})
	if err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}

	wantNames := []string{"frame_000.png", "frame_001.png"}
	for i, want := range wantNames {
		if res.Filenames[i] != want {
			t.Errorf("Filenames[%d] = %q, want %q", i, res.Filenames[i], want)
		}
		if _, err := os.Stat(filepath.Join(dir, want)); err != nil {
			t.Errorf("output %s not written: %v", want, err)
		}
	}
	if len(res.Local) != 2 || len(res.Cloud) != 0 {
		t.Errorf("result legs = %d local, %d cloud; want 2, 0", len(res.Local), len(res.Cloud))
	}
	if fake.uploadItems != nil {
		t.Error("local-only save must not touch the transfer engine")
	}

	evs := drainEvents(ch)
	types := eventTypes(evs)
	want := []events.EventType{
		events.EventSaveStart,
		events.EventSaveProgress, events.EventSaveProgress,
		events.EventSaveComplete,
	}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event types = %v, want %v", types, want)
		}
	}
	start := evs[0].(*events.StartEvent)
	if start.Total != 2 || start.Provider != "" {
		t.Errorf("start event = %+v, want total 2, empty provider", start)
	}
	complete := evs[len(evs)-1].(*events.CompleteEvent)
	if complete.CountLocal != 2 || complete.CountCloud != 0 {
		t.Errorf("complete counts = %d/%d, want 2 local, 0 cloud", complete.CountLocal, complete.CountCloud)
	}
}

func TestSaveImageCloud(t *testing.T) {
	fake := &fakeTransfer{}
	r, ch := newTestRunner(t, fake)

	res, err := r.SaveImage(context.Background(), testImages(2), SaveOptions{
		SaveCloud:  true,
		CustomName: "frame",
		Destination: models.Destination{
			Provider:   "AWS S3", // display names are accepted and normalized
			Locator:    "https://bucket.s3.us-east-1.amazonaws.com",
			Credential: "AKIA:secret",
		},
	})
	if err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}
	if len(res.Cloud) != 2 || len(res.Local) != 0 {
		t.Errorf("result legs = %d local, %d cloud; want 0, 2", len(res.Local), len(res.Cloud))
	}
	if fake.uploadDest.Provider != "s3" {
		t.Errorf("engine saw provider %q, want canonical %q", fake.uploadDest.Provider, "s3")
	}
	if len(fake.uploadItems) != 2 || fake.uploadItems[0].Filename != "frame_000.png" {
		t.Errorf("uploaded items = %+v", fake.uploadItems)
	}
	if len(fake.uploadItems[0].Content) == 0 {
		t.Error("uploaded item has no content")
	}

	evs := drainEvents(ch)
	start := evs[0].(*events.StartEvent)
	if start.Provider != "AWS S3" {
		t.Errorf("start provider = %q, want display name", start.Provider)
	}
	complete := evs[len(evs)-1].(*events.CompleteEvent)
	if complete.CountLocal != 0 || complete.CountCloud != 2 || complete.Provider != "AWS S3" {
		t.Errorf("complete event = %+v", complete)
	}
}

func TestSaveImageNoTargets(t *testing.T) {
	r, ch := newTestRunner(t, &fakeTransfer{})

	_, err := r.SaveImage(context.Background(), testImages(1), SaveOptions{})
	if !errors.Is(err, validation.ErrNoSaveTarget) {
		t.Fatalf("SaveImage() error = %v, want ErrNoSaveTarget", err)
	}
	if evs := drainEvents(ch); len(evs) != 0 {
		t.Errorf("validation failures must not publish events, got %v", eventTypes(evs))
	}
}

func TestSaveImageCloudFailure(t *testing.T) {
	fake := &fakeTransfer{uploadErr: errors.New("vendor rejected the object")}
	r, ch := newTestRunner(t, fake)

	_, err := r.SaveImage(context.Background(), testImages(1), SaveOptions{
		SaveCloud: true,
		Destination: models.Destination{
			Provider:   "s3",
			Locator:    "bucket",
			Credential: "key",
		},
	})
	if err == nil || !strings.Contains(err.Error(), "cloud upload failed") {
		t.Fatalf("SaveImage() error = %v, want upload failure", err)
	}

	evs := drainEvents(ch)
	if hasEvent(evs, events.EventSaveComplete) {
		t.Error("failed save must not publish a complete event")
	}
}

func TestSaveImageEmptyBatch(t *testing.T) {
	r, _ := newTestRunner(t, &fakeTransfer{})
	if _, err := r.SaveImage(context.Background(), nil, SaveOptions{SaveLocal: true}); err == nil {
		t.Fatal("SaveImage() with no images must fail")
	}
}

func TestSaveImageMetadata(t *testing.T) {
	graph := []byte(`{"1":{"class_type":"Sampler","inputs":{"seed":42}}}`)
	r, _ := newTestRunner(t, &fakeTransfer{})
	dir := t.TempDir()

	res, err := r.SaveImage(context.Background(), testImages(1), SaveOptions{
		SaveLocal: true,
		OutputDir: dir,
		Filename:  "pic.png",
		GraphJSON: graph,
		Extra:     map[string]json.RawMessage{"workflow": json.RawMessage(`{"nodes":[]}`)},
	})
	if err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}
	if res.Filenames[0] != "pic.png" {
		t.Fatalf("Filenames[0] = %q, want pic.png", res.Filenames[0])
	}

	data, err := os.ReadFile(res.Local[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	text, err := media.ExtractText(data)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text["prompt"] != string(graph) {
		t.Errorf("prompt chunk = %q, want the graph JSON", text["prompt"])
	}
	if text["workflow"] != `{"nodes":[]}` {
		t.Errorf("workflow chunk = %q", text["workflow"])
	}
}

func TestSaveImageNoMetadata(t *testing.T) {
	r, _ := newTestRunner(t, &fakeTransfer{})
	dir := t.TempDir()

	res, err := r.SaveImage(context.Background(), testImages(1), SaveOptions{
		SaveLocal:  true,
		OutputDir:  dir,
		Filename:   "pic.png",
		GraphJSON:  []byte(`{"1":{"class_type":"Sampler","inputs":{}}}`),
		NoMetadata: true,
	})
	if err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}
	data, err := os.ReadFile(res.Local[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	text, err := media.ExtractText(data)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if len(text) != 0 {
		t.Errorf("metadata suppressed but chunks present: %v", text)
	}
}

func TestSaveWorkflowTimestampedFilename(t *testing.T) {
	r, _ := newTestRunner(t, &fakeTransfer{})
	r.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	dir := t.TempDir()

	res, err := r.SaveWorkflow(context.Background(), true, SaveOptions{
		SaveLocal: true,
		OutputDir: dir,
		Filename:  "flow",
		GraphJSON: []byte(`{"1":{"class_type":"Sampler","inputs":{"seed":42}}}`),
	})
	if err != nil {
		t.Fatalf("SaveWorkflow() error = %v", err)
	}
	if res.Filenames[0] != "flow_20240102_030405.json" {
		t.Errorf("Filenames[0] = %q, want flow_20240102_030405.json", res.Filenames[0])
	}

	data, err := os.ReadFile(res.Local[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Prompt map[string]any `json:"prompt"`
		Extra  map[string]any `json:"extra"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}
	if _, ok := doc.Prompt["1"]; !ok {
		t.Errorf("document prompt = %v, want the graph", doc.Prompt)
	}
	if doc.Extra == nil || len(doc.Extra) != 0 {
		t.Errorf("document extra = %v, want empty object", doc.Extra)
	}
	if !strings.HasPrefix(string(data), "{\n  ") {
		t.Errorf("document not indented: %q", data[:min(len(data), 16)])
	}
}

func TestSaveWorkflowGeneratedNameSkipsTimestamp(t *testing.T) {
	r, _ := newTestRunner(t, &fakeTransfer{})
	dir := t.TempDir()

	res, err := r.SaveWorkflow(context.Background(), true, SaveOptions{
		SaveLocal: true,
		OutputDir: dir,
		Prefix:    "flows/run",
	})
	if err != nil {
		t.Fatalf("SaveWorkflow() error = %v", err)
	}

	// Generated names are already unique, so no timestamp gets spliced in
	// even with timestamping on.
	pattern := regexp.MustCompile(`^run-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.json$`)
	if !pattern.MatchString(res.Filenames[0]) {
		t.Errorf("Filenames[0] = %q, want run-<uuid>.json", res.Filenames[0])
	}
	wantPath := filepath.Join(dir, "flows", res.Filenames[0])
	if res.Local[0].Path != wantPath {
		t.Errorf("Path = %q, want under the prefix subfolder %q", res.Local[0].Path, wantPath)
	}
}

func TestSaveAudioRejectsBadQuality(t *testing.T) {
	r, ch := newTestRunner(t, &fakeTransfer{})

	_, err := r.SaveAudio(context.Background(), "in.wav", media.AudioMP3, "999k", SaveOptions{SaveLocal: true, OutputDir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "quality must be one of") {
		t.Fatalf("SaveAudio() error = %v, want quality error", err)
	}
	if evs := drainEvents(ch); len(evs) != 0 {
		t.Errorf("validation failures must not publish events, got %v", eventTypes(evs))
	}
}

func TestSaveAudioEncodeFailure(t *testing.T) {
	r, ch := newTestRunner(t, &fakeTransfer{})

	// The input does not exist, so the encode fails whether or not an
	// ffmpeg binary is installed.
	_, err := r.SaveAudio(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), media.AudioWAV, "", SaveOptions{
		SaveLocal: true,
		OutputDir: t.TempDir(),
	})
	if err == nil {
		t.Fatal("SaveAudio() with a missing input must fail")
	}

	evs := drainEvents(ch)
	types := eventTypes(evs)
	if len(types) == 0 || types[0] != events.EventSaveStart {
		t.Fatalf("event types = %v, want save_start first", types)
	}
	if !hasEvent(evs, events.EventSaveError) {
		t.Error("encode failure must publish a save error event")
	}
	if hasEvent(evs, events.EventSaveComplete) {
		t.Error("failed save must not publish a complete event")
	}
}

func TestSaveVideoMissingInput(t *testing.T) {
	r, ch := newTestRunner(t, &fakeTransfer{})
	dir := t.TempDir()

	_, err := r.SaveVideo(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), media.ContainerMP4, media.CodecAuto, SaveOptions{
		SaveLocal: true,
		OutputDir: dir,
	})
	if err == nil {
		t.Fatal("SaveVideo() with a missing input must fail")
	}

	evs := drainEvents(ch)
	if !hasEvent(evs, events.EventSaveError) {
		t.Error("render failure must publish a save error event")
	}
	if hasEvent(evs, events.EventSaveComplete) {
		t.Error("failed save must not publish a complete event")
	}
}
