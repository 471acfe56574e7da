package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mediasink/mediasink/internal/config"
)

func TestDestinationFlagsBeatConfigDefaults(t *testing.T) {
	cfg := config.New()
	cfg.Destination.Provider = "gcs"
	cfg.Destination.Locator = "config-bucket"
	cfg.Destination.FolderPath = "config/folder"
	cfg.Destination.APIKey = "config-key"

	f := destinationFlags{
		provider:   "s3",
		locator:    "s3://flag-bucket",
		folderPath: "flag/folder",
		credential: "flag-key",
	}

	dest, err := f.resolve(cfg)
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if dest.Provider != "s3" || dest.Locator != "s3://flag-bucket" || dest.FolderPath != "flag/folder" {
		t.Errorf("flags did not win: %+v", dest)
	}
	if dest.Credential != "flag-key" {
		t.Errorf("Credential = %q, want flag-key", dest.Credential)
	}
}

func TestDestinationFallsBackToConfig(t *testing.T) {
	cfg := config.New()
	cfg.Destination.Provider = "dropbox"
	cfg.Destination.Locator = "saved"
	cfg.Destination.APIKey = "config-key"

	var f destinationFlags
	dest, err := f.resolve(cfg)
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if dest.Provider != "dropbox" || dest.Locator != "saved" {
		t.Errorf("config defaults not applied: %+v", dest)
	}
	if dest.Credential != "config-key" {
		t.Errorf("Credential = %q, want config-key", dest.Credential)
	}
}

func TestDestinationCredentialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cred")
	if err := os.WriteFile(path, []byte("  file-key \n"), 0600); err != nil {
		t.Fatal(err)
	}

	f := destinationFlags{provider: "s3", credentialFile: path}
	dest, err := f.resolve(config.New())
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if dest.Credential != "file-key" {
		t.Errorf("Credential = %q, want trimmed file contents", dest.Credential)
	}
}

func TestDestinationCredentialFileMissing(t *testing.T) {
	f := destinationFlags{credentialFile: filepath.Join(t.TempDir(), "absent")}
	if _, err := f.resolve(config.New()); err == nil {
		t.Fatal("expected error for missing credential file")
	}
}

func TestDestinationCredentialEnvFallback(t *testing.T) {
	t.Setenv("MEDIASINK_API_KEY_S3", "env-key")

	f := destinationFlags{provider: "s3"}
	dest, err := f.resolve(config.New())
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if dest.Credential != "env-key" {
		t.Errorf("Credential = %q, want env-key", dest.Credential)
	}

	// An explicit flag still wins over the environment.
	f.credential = "flag-key"
	dest, err = f.resolve(config.New())
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if dest.Credential != "flag-key" {
		t.Errorf("Credential = %q, want flag-key", dest.Credential)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "  ", "third"); got != "third" {
		t.Errorf("firstNonEmpty = %q, want third", got)
	}
	if got := firstNonEmpty(); got != "" {
		t.Errorf("firstNonEmpty() = %q, want empty", got)
	}
}
