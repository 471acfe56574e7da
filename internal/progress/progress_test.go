package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mediasink/mediasink/internal/events"
)

func TestRendererPlainSave(t *testing.T) {
	bus := events.NewEventBus(64)
	defer bus.Close()
	var buf bytes.Buffer

	r := NewRenderer(bus, WithOutput(&buf), WithMode(ModePlain))
	r.Start()
	bus.PublishSaveStart(2, "AWS S3")
	bus.PublishSaveProgress(events.WhereLocal, 1, 2, "a.png")
	bus.PublishSaveProgress(events.WhereLocal, 2, 2, "b.png")
	bus.PublishSaveProgress(events.WhereCloud, 1, 2, "out/a.png")
	bus.PublishSaveProgress(events.WhereCloud, 2, 2, "out/b.png")
	bus.PublishSaveComplete(2, 2, "AWS S3")
	r.Stop()

	out := buf.String()
	for _, want := range []string{
		"Saving 2 files to AWS S3",
		"local [1/2] a.png",
		"local [2/2] b.png",
		"cloud [1/2] out/a.png",
		"✓ saved 2 local, 2 to AWS S3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRendererPlainLocalOnly(t *testing.T) {
	bus := events.NewEventBus(64)
	defer bus.Close()
	var buf bytes.Buffer

	r := NewRenderer(bus, WithOutput(&buf), WithMode(ModePlain))
	r.Start()
	bus.PublishSaveStart(1, "")
	bus.PublishSaveProgress(events.WhereLocal, 1, 1, "a.png")
	bus.PublishSaveComplete(1, 0, "")
	r.Stop()

	out := buf.String()
	if !strings.Contains(out, "Saving 1 file\n") {
		t.Errorf("output missing local-only start line:\n%s", out)
	}
	if !strings.Contains(out, "✓ saved 1 local") {
		t.Errorf("output missing local-only summary:\n%s", out)
	}
	if strings.Contains(out, "to \n") || strings.Contains(out, " to )") {
		t.Errorf("local-only output mentions an empty provider:\n%s", out)
	}
}

func TestRendererPlainLoadError(t *testing.T) {
	bus := events.NewEventBus(64)
	defer bus.Close()
	var buf bytes.Buffer

	r := NewRenderer(bus, WithOutput(&buf), WithMode(ModePlain))
	r.Start()
	bus.PublishLoadStart(1, "Dropbox")
	bus.PublishLoadError("object not found")
	r.Stop()

	out := buf.String()
	if !strings.Contains(out, "Loading 1 file from Dropbox") {
		t.Errorf("output missing start line:\n%s", out)
	}
	if !strings.Contains(out, "✗ object not found") {
		t.Errorf("output missing error line:\n%s", out)
	}
	if strings.Contains(out, "✓") {
		t.Errorf("failed load must not render a success line:\n%s", out)
	}
}

func TestRendererQuiet(t *testing.T) {
	bus := events.NewEventBus(64)
	defer bus.Close()
	var buf bytes.Buffer

	r := NewRenderer(bus, WithOutput(&buf), WithMode(ModeQuiet))
	r.Start()
	bus.PublishSaveStart(1, "AWS S3")
	bus.PublishSaveComplete(0, 1, "AWS S3")
	r.Stop()

	if buf.Len() != 0 {
		t.Errorf("quiet mode wrote output: %q", buf.String())
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"plain", ModePlain, false},
		{"none", ModeQuiet, false},
		{"quiet", ModeQuiet, false},
		{"fancy", ModeAuto, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"a.png", 2, "a.png"},
		{"renders/a.png", 2, "renders/a.png"},
		{"deep/nested/renders/a.png", 2, ".../renders/a.png"},
	}
	for _, tt := range tests {
		if got := truncatePath(tt.in, tt.n); got != tt.want {
			t.Errorf("truncatePath(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
