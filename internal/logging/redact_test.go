package logging

import (
	"net/url"
	"testing"
)

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key      string
		expected bool
	}{
		{"api_key", true},
		{"AWS_ACCESS_KEY_ID", true},
		{"dropbox_refresh_token", true},
		{"Authorization", true},
		{"client_secret", true},
		{"provider", false},
		{"locator", false},
		{"folder_path", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := IsSensitiveKey(tt.key); got != tt.expected {
				t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{
			name:     "Ordinary key passes through",
			key:      "bucket",
			value:    "render-output",
			expected: "render-output",
		},
		{
			name:     "Sensitive key is masked",
			key:      "api_key",
			value:    "sk-12345",
			expected: "[redacted]",
		},
		{
			name:     "Empty value stays empty",
			key:      "api_key",
			value:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Redact(tt.key, tt.value); got != tt.expected {
				t.Errorf("Redact(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.expected)
			}
		})
	}
}

func TestRedactParams(t *testing.T) {
	params := map[string]string{
		"provider": "s3",
		"api_key":  "AKIA:secret",
	}

	out := RedactParams(params)

	if out["provider"] != "s3" {
		t.Errorf("provider = %q, want s3", out["provider"])
	}
	if out["api_key"] != "[redacted]" {
		t.Errorf("api_key = %q, want [redacted]", out["api_key"])
	}
	if params["api_key"] != "AKIA:secret" {
		t.Error("RedactParams must not mutate its input")
	}
}

func TestRedactURL(t *testing.T) {
	raw := "https://f002.backblazeb2.com/file/bucket/a.png?Authorization=tok123&fileId=abc"

	got := RedactURL(raw)

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("RedactURL produced unparseable output: %v", err)
	}
	if v := u.Query().Get("Authorization"); v != "[redacted]" {
		t.Errorf("Authorization = %q, want [redacted]", v)
	}
	if v := u.Query().Get("fileId"); v != "abc" {
		t.Errorf("fileId = %q, want abc", v)
	}
}

func TestRedactURLLeavesCleanURLsAlone(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "No query string",
			raw:  "https://api.dropboxapi.com/2/files/upload",
		},
		{
			name: "No sensitive parameters",
			raw:  "https://storage.example.com/list?prefix=renders&limit=100",
		},
		{
			name: "Unparseable input",
			raw:  "://missing-scheme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactURL(tt.raw); got != tt.raw {
				t.Errorf("RedactURL(%q) = %q, want unchanged", tt.raw, got)
			}
		})
	}
}
