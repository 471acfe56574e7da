package paths

import (
	"fmt"
	"testing"
)

func TestResolveCollisions_NoCollisions(t *testing.T) {
	targets := []DownloadTarget{
		{Key: "renders/frame1.png", Name: "frame1.png", LocalPath: "/dest/frame1.png", Size: 100},
		{Key: "renders/frame2.png", Name: "frame2.png", LocalPath: "/dest/frame2.png", Size: 200},
		{Key: "renders/frame3.png", Name: "frame3.png", LocalPath: "/dest/frame3.png", Size: 300},
	}

	result, count := ResolveCollisions(targets)

	if count != 0 {
		t.Errorf("expected 0 collisions, got %d", count)
	}
	// Paths should be unchanged
	if result[0].LocalPath != "/dest/frame1.png" {
		t.Errorf("expected /dest/frame1.png, got %s", result[0].LocalPath)
	}
	if result[1].LocalPath != "/dest/frame2.png" {
		t.Errorf("expected /dest/frame2.png, got %s", result[1].LocalPath)
	}
	if result[2].LocalPath != "/dest/frame3.png" {
		t.Errorf("expected /dest/frame3.png, got %s", result[2].LocalPath)
	}
}

func TestResolveCollisions_TwoDuplicates(t *testing.T) {
	targets := []DownloadTarget{
		{Key: "a/output.png", Name: "output.png", LocalPath: "/dest/output.png", Size: 100},
		{Key: "b/output.png", Name: "output.png", LocalPath: "/dest/output.png", Size: 200},
	}

	result, count := ResolveCollisions(targets)

	if count != 2 {
		t.Errorf("expected 2 collisions, got %d", count)
	}
	// Both paths should now include a key digest before the extension
	want0 := fmt.Sprintf("/dest/output_%s.png", KeyDigest("a/output.png"))
	want1 := fmt.Sprintf("/dest/output_%s.png", KeyDigest("b/output.png"))
	if result[0].LocalPath != want0 {
		t.Errorf("expected %s, got %s", want0, result[0].LocalPath)
	}
	if result[1].LocalPath != want1 {
		t.Errorf("expected %s, got %s", want1, result[1].LocalPath)
	}
	if result[0].LocalPath == result[1].LocalPath {
		t.Errorf("resolved paths are still identical: %s", result[0].LocalPath)
	}
}

func TestResolveCollisions_MixedDuplicatesAndUnique(t *testing.T) {
	targets := []DownloadTarget{
		{Key: "unique.wav", Name: "unique.wav", LocalPath: "/dest/unique.wav", Size: 100},
		{Key: "x/clip.webm", Name: "clip.webm", LocalPath: "/dest/clip.webm", Size: 200},
		{Key: "y/clip.webm", Name: "clip.webm", LocalPath: "/dest/clip.webm", Size: 300},
		{Key: "another.flac", Name: "another.flac", LocalPath: "/dest/another.flac", Size: 400},
	}

	result, count := ResolveCollisions(targets)

	if count != 2 {
		t.Errorf("expected 2 collisions (only the duplicates), got %d", count)
	}
	// Unique targets should be unchanged
	if result[0].LocalPath != "/dest/unique.wav" {
		t.Errorf("expected /dest/unique.wav, got %s", result[0].LocalPath)
	}
	if result[3].LocalPath != "/dest/another.flac" {
		t.Errorf("expected /dest/another.flac, got %s", result[3].LocalPath)
	}
	// Duplicates should have digests appended
	if result[1].LocalPath == "/dest/clip.webm" || result[2].LocalPath == "/dest/clip.webm" {
		t.Errorf("duplicates not renamed: %s, %s", result[1].LocalPath, result[2].LocalPath)
	}
	if result[1].LocalPath == result[2].LocalPath {
		t.Errorf("resolved paths are still identical: %s", result[1].LocalPath)
	}
}

func TestResolveCollisions_NoExtension(t *testing.T) {
	targets := []DownloadTarget{
		{Key: "a/README", Name: "README", LocalPath: "/dest/README", Size: 100},
		{Key: "b/README", Name: "README", LocalPath: "/dest/README", Size: 200},
	}

	result, count := ResolveCollisions(targets)

	if count != 2 {
		t.Errorf("expected 2 collisions, got %d", count)
	}
	// Should append digest even without extension
	want0 := fmt.Sprintf("/dest/README_%s", KeyDigest("a/README"))
	if result[0].LocalPath != want0 {
		t.Errorf("expected %s, got %s", want0, result[0].LocalPath)
	}
}

func TestResolveCollisions_DifferentDirectories(t *testing.T) {
	// Same filename but different directories = no collision
	targets := []DownloadTarget{
		{Key: "a/data.png", Name: "data.png", LocalPath: "/dest/dir1/data.png", Size: 100},
		{Key: "b/data.png", Name: "data.png", LocalPath: "/dest/dir2/data.png", Size: 200},
	}

	result, count := ResolveCollisions(targets)

	if count != 0 {
		t.Errorf("expected 0 collisions (different directories), got %d", count)
	}
	if result[0].LocalPath != "/dest/dir1/data.png" {
		t.Errorf("expected /dest/dir1/data.png, got %s", result[0].LocalPath)
	}
	if result[1].LocalPath != "/dest/dir2/data.png" {
		t.Errorf("expected /dest/dir2/data.png, got %s", result[1].LocalPath)
	}
}

func TestResolveCollisions_EmptyList(t *testing.T) {
	targets := []DownloadTarget{}

	result, count := ResolveCollisions(targets)

	if count != 0 {
		t.Errorf("expected 0 collisions for empty list, got %d", count)
	}
	if len(result) != 0 {
		t.Errorf("expected empty result, got %d items", len(result))
	}
}

func TestResolveCollisions_MultipleExtensions(t *testing.T) {
	// Only the last extension is preserved on rename
	targets := []DownloadTarget{
		{Key: "a/data.tar.gz", Name: "data.tar.gz", LocalPath: "/dest/data.tar.gz", Size: 100},
		{Key: "b/data.tar.gz", Name: "data.tar.gz", LocalPath: "/dest/data.tar.gz", Size: 200},
	}

	result, count := ResolveCollisions(targets)

	if count != 2 {
		t.Errorf("expected 2 collisions, got %d", count)
	}
	want0 := fmt.Sprintf("/dest/data.tar_%s.gz", KeyDigest("a/data.tar.gz"))
	if result[0].LocalPath != want0 {
		t.Errorf("expected %s, got %s", want0, result[0].LocalPath)
	}
}

func TestKeyDigest_StableAndShort(t *testing.T) {
	d1 := KeyDigest("renders/frame.png")
	d2 := KeyDigest("renders/frame.png")
	if d1 != d2 {
		t.Errorf("digest not stable: %s vs %s", d1, d2)
	}
	if len(d1) != 8 {
		t.Errorf("expected 8 hex chars, got %d (%s)", len(d1), d1)
	}
	if KeyDigest("a") == KeyDigest("b") {
		t.Error("different keys produced identical digests")
	}
}
