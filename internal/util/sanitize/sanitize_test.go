package sanitize

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Normal filename",
			input:    "test.png",
			expected: "test.png",
		},
		{
			name:     "Unix path traversal",
			input:    "../../../etc/passwd",
			expected: "passwd",
		},
		{
			name:     "Windows path traversal",
			input:    `..\windows\system32`,
			expected: "system32",
		},
		{
			name:     "Mixed separators",
			input:    `a/b\c/d.png`,
			expected: "d.png",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "Single dot",
			input:    ".",
			expected: "",
		},
		{
			name:     "Double dot",
			input:    "..",
			expected: "",
		},
		{
			name:     "Whitespace only",
			input:    "   ",
			expected: "",
		},
		{
			name:     "Null bytes removed",
			input:    "test\x00file.png",
			expected: "testfile.png",
		},
		{
			name:     "Trailing separator",
			input:    "folder/",
			expected: "",
		},
		{
			name:     "Leading and trailing whitespace",
			input:    "  frame.png  ",
			expected: "frame.png",
		},
		{
			name:     "Hidden file kept",
			input:    ".env",
			expected: ".env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSanitizeFilenameLengthCap(t *testing.T) {
	long := strings.Repeat("a", 300) + ".png"
	result := SanitizeFilename(long)
	if len(result) != 255 {
		t.Errorf("SanitizeFilename() length = %d, want 255", len(result))
	}
}

func TestSplitExt(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantBase string
		wantExt  string
	}{
		{
			name:     "Simple extension",
			input:    "frame.png",
			wantBase: "frame",
			wantExt:  ".png",
		},
		{
			name:     "Multiple dots",
			input:    "archive.tar.gz",
			wantBase: "archive.tar",
			wantExt:  ".gz",
		},
		{
			name:     "No extension",
			input:    "noext",
			wantBase: "noext",
			wantExt:  "",
		},
		{
			name:     "Leading dot only",
			input:    ".bashrc",
			wantBase: ".bashrc",
			wantExt:  "",
		},
		{
			name:     "Empty string",
			input:    "",
			wantBase: "",
			wantExt:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, ext := SplitExt(tt.input)
			if base != tt.wantBase || ext != tt.wantExt {
				t.Errorf("SplitExt(%q) = (%q, %q), want (%q, %q)", tt.input, base, ext, tt.wantBase, tt.wantExt)
			}
		})
	}
}
