package models

// Destination identifies where files are saved to or loaded from.
type Destination struct {
	// Provider is the registry ID or display name of the cloud backend,
	// e.g. "s3" or "AWS S3".
	Provider string `json:"provider"`
	// Locator is the provider-specific destination string: a bucket URL,
	// connection string, folder path or bucket name. See each provider for
	// its accepted forms.
	Locator string `json:"locator"`
	// FolderPath is an optional key prefix under the locator. Created on
	// demand by providers that have real folders.
	FolderPath string `json:"folder_path"`
	// Credential carries the auth material: a bare token, "A:B" pair or a
	// JSON document, depending on the provider. Never logged.
	Credential string `json:"-"`
}

// FileItem is one in-memory file of an upload batch.
type FileItem struct {
	Filename string `json:"filename"`
	Content  []byte `json:"-"`
}

// UploadResult describes one uploaded object.
type UploadResult struct {
	Provider string `json:"provider"`
	Bucket   string `json:"bucket,omitempty"`
	Path     string `json:"path"`
	URL      string `json:"url,omitempty"`
	FileID   string `json:"file_id,omitempty"`
}

// DownloadedFile is one object fetched from a destination. Filename holds
// the key as requested, not the resolved remote path.
type DownloadedFile struct {
	Filename string `json:"filename"`
	Content  []byte `json:"-"`
}
