package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodeTestPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(40 * x), G: uint8(40 * y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

func TestInjectAndExtractText(t *testing.T) {
	base := encodeTestPNG(t)
	chunks := []TextChunk{
		{Keyword: "prompt", Text: `{"3":{"class_type":"Sampler"}}`},
		{Keyword: "workflow", Text: `{"nodes":[]}`},
	}

	out, err := InjectText(base, chunks)
	if err != nil {
		t.Fatalf("InjectText: %v", err)
	}
	if len(out) <= len(base) {
		t.Fatalf("output not grown: %d <= %d", len(out), len(base))
	}

	// The rewritten file must still decode as a PNG.
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decoding rewritten png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Errorf("bounds = %v, want 4x4", b)
	}

	got, err := ExtractText(out)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	for _, c := range chunks {
		if got[c.Keyword] != c.Text {
			t.Errorf("chunk %q = %q, want %q", c.Keyword, got[c.Keyword], c.Text)
		}
	}
}

func TestInjectTextNoChunks(t *testing.T) {
	base := encodeTestPNG(t)
	out, err := InjectText(base, nil)
	if err != nil {
		t.Fatalf("InjectText: %v", err)
	}
	if !bytes.Equal(out, base) {
		t.Error("no-op injection changed the data")
	}
}

func TestInjectTextRejectsNonPNG(t *testing.T) {
	if _, err := InjectText([]byte("JFIF not a png at all"), []TextChunk{{Keyword: "k", Text: "v"}}); err != ErrNotPNG {
		t.Fatalf("expected ErrNotPNG, got %v", err)
	}
}

func TestInjectTextRejectsBadKeyword(t *testing.T) {
	base := encodeTestPNG(t)
	if _, err := InjectText(base, []TextChunk{{Keyword: "", Text: "v"}}); err == nil {
		t.Error("expected error for empty keyword")
	}
	long := make([]byte, 80)
	for i := range long {
		long[i] = 'k'
	}
	if _, err := InjectText(base, []TextChunk{{Keyword: string(long), Text: "v"}}); err == nil {
		t.Error("expected error for oversized keyword")
	}
}

func TestExtractTextPlainPNG(t *testing.T) {
	got, err := ExtractText(encodeTestPNG(t))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("unexpected chunks: %v", got)
	}
}

func TestExtractTextTruncated(t *testing.T) {
	base := encodeTestPNG(t)
	out, err := InjectText(base, []TextChunk{{Keyword: "prompt", Text: "{}"}})
	if err != nil {
		t.Fatalf("InjectText: %v", err)
	}
	if _, err := ExtractText(out[:len(out)-6]); err != ErrNotPNG {
		t.Fatalf("expected ErrNotPNG for truncated data, got %v", err)
	}
}
