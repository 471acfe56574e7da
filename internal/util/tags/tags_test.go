package tags

import (
	"reflect"
	"testing"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "Trims whitespace",
			input:    []string{" upscaled ", "final"},
			expected: []string{"upscaled", "final"},
		},
		{
			name:     "Drops empty entries",
			input:    []string{"", "  ", "keep"},
			expected: []string{"keep"},
		},
		{
			name:     "Deduplicates",
			input:    []string{"a", "b", "a"},
			expected: []string{"a", "b"},
		},
		{
			name:     "Empty input",
			input:    nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeTags(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("NormalizeTags() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestParseCommaSeparated(t *testing.T) {
	result := ParseCommaSeparated("depth, normals , depth,")
	expected := []string{"depth", "normals"}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("ParseCommaSeparated() = %v, want %v", result, expected)
	}

	if got := ParseCommaSeparated("   "); got != nil {
		t.Errorf("ParseCommaSeparated(blank) = %v, want nil", got)
	}
}

func TestParseKeyValue(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantKey   string
		wantValue string
		wantOK    bool
	}{
		{
			name:      "Simple pair",
			input:     "seed=12345",
			wantKey:   "seed",
			wantValue: "12345",
			wantOK:    true,
		},
		{
			name:      "Value contains equals",
			input:     "note=a=b",
			wantKey:   "note",
			wantValue: "a=b",
			wantOK:    true,
		},
		{
			name:      "Trimmed key and value",
			input:     " model = sdxl ",
			wantKey:   "model",
			wantValue: "sdxl",
			wantOK:    true,
		},
		{
			name:   "No equals",
			input:  "justakey",
			wantOK: false,
		},
		{
			name:   "Empty key",
			input:  "=value",
			wantOK: false,
		},
		{
			name:      "Empty value",
			input:     "key=",
			wantKey:   "key",
			wantValue: "",
			wantOK:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, value, ok := ParseKeyValue(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseKeyValue(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if key != tt.wantKey || value != tt.wantValue {
				t.Errorf("ParseKeyValue(%q) = (%q, %q), want (%q, %q)", tt.input, key, value, tt.wantKey, tt.wantValue)
			}
		})
	}
}

func TestParsePairs(t *testing.T) {
	result := ParsePairs([]string{"seed=1", "cfg=7.5", "bogus", "seed=2"})
	expected := map[string]string{"seed": "2", "cfg": "7.5"}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("ParsePairs() = %v, want %v", result, expected)
	}

	if got := ParsePairs(nil); got != nil {
		t.Errorf("ParsePairs(nil) = %v, want nil", got)
	}
	if got := ParsePairs([]string{"nope"}); got != nil {
		t.Errorf("ParsePairs(malformed only) = %v, want nil", got)
	}
}
