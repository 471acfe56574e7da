// Package gcs stores objects in Google Cloud Storage buckets.
//
// Credentials: an inline service-account JSON document, a path to a
// service-account .json file, or empty to use Application Default
// Credentials.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/mediasink/mediasink/internal/cloud"
	"github.com/mediasink/mediasink/internal/constants"
	"github.com/mediasink/mediasink/internal/models"
)

// DisplayName is the human-facing provider name.
const DisplayName = "Google Cloud Storage"

// ParseLocator splits "gs://bucket[/prefix]" or "bucket[/prefix]" into
// bucket and base prefix.
func ParseLocator(locator string) (bucket, basePrefix string, err error) {
	trimmed := strings.TrimSpace(locator)
	if rest, ok := strings.CutPrefix(trimmed, "gs://"); ok {
		trimmed = rest
	}
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "", "", fmt.Errorf("%s: destination locator must name a bucket (gs://bucket[/prefix])", DisplayName)
	}
	bucket, basePrefix, _ = strings.Cut(trimmed, "/")
	return bucket, basePrefix, nil
}

// clientOptions maps the credential grammar onto SDK options.
func clientOptions(credential string) []option.ClientOption {
	trimmed := strings.TrimSpace(credential)
	switch {
	case strings.HasPrefix(trimmed, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(trimmed))}
	case strings.HasSuffix(trimmed, ".json"):
		return []option.ClientOption{option.WithCredentialsFile(trimmed)}
	default:
		// Application Default Credentials.
		return nil
	}
}

// Client implements cloud.Uploader and cloud.Downloader for GCS.
type Client struct {
	mu          sync.Mutex
	cached      *gstorage.Client
	cachedCreds string
}

// New returns a GCS client ready for any destination.
func New() *Client { return &Client{} }

func (c *Client) client(ctx context.Context, credential string) (*gstorage.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.cachedCreds == credential {
		return c.cached, nil
	}

	client, err := gstorage.NewClient(ctx, clientOptions(credential)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	c.cached = client
	c.cachedCreds = credential
	return client, nil
}

// Upload stores a single object.
func (c *Client) Upload(ctx context.Context, data []byte, filename string, dest models.Destination) (models.UploadResult, error) {
	results, err := c.UploadMany(ctx, []models.FileItem{{Filename: filename, Content: data}}, dest, cloud.Hooks{})
	if err != nil {
		return models.UploadResult{}, err
	}
	return results[0], nil
}

// UploadMany stores items sequentially through chunked object writers.
func (c *Client) UploadMany(ctx context.Context, items []models.FileItem, dest models.Destination, hooks cloud.Hooks) ([]models.UploadResult, error) {
	bucket, basePrefix, err := ParseLocator(dest.Locator)
	if err != nil {
		return nil, err
	}
	client, err := c.client(ctx, dest.Credential)
	if err != nil {
		return nil, err
	}

	results := make([]models.UploadResult, 0, len(items))
	for i, item := range items {
		key := cloud.JoinKey(basePrefix, dest.FolderPath, item.Filename)
		if err := c.put(ctx, client, bucket, key, i, item, hooks); err != nil {
			return results, fmt.Errorf("GCS upload of %s failed: %w", item.Filename, err)
		}

		results = append(results, models.UploadResult{
			Provider: DisplayName,
			Bucket:   bucket,
			Path:     key,
			URL:      fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key),
		})
		hooks.ItemDone(i, item.Filename, key)
	}
	return results, nil
}

func (c *Client) put(ctx context.Context, client *gstorage.Client, bucket, key string, index int, item models.FileItem, hooks cloud.Hooks) error {
	size := int64(len(item.Content))
	body := cloud.NewMeteredReader(bytes.NewReader(item.Content), size, index, item.Filename, key, hooks)

	w := client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = cloud.ContentTypeFor(item.Filename)
	w.ChunkSize = constants.ChunkSize

	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return err
	}
	// Close commits the object; most upload errors surface here.
	return w.Close()
}

// Download fetches a single object by key.
func (c *Client) Download(ctx context.Context, key string, dest models.Destination) (models.DownloadedFile, error) {
	files, err := c.DownloadMany(ctx, []string{key}, dest, cloud.Hooks{})
	if err != nil {
		return models.DownloadedFile{}, err
	}
	return files[0], nil
}

// DownloadMany fetches objects sequentially.
func (c *Client) DownloadMany(ctx context.Context, keys []string, dest models.Destination, hooks cloud.Hooks) ([]models.DownloadedFile, error) {
	bucket, basePrefix, err := ParseLocator(dest.Locator)
	if err != nil {
		return nil, err
	}
	client, err := c.client(ctx, dest.Credential)
	if err != nil {
		return nil, err
	}

	files := make([]models.DownloadedFile, 0, len(keys))
	for i, name := range keys {
		key := cloud.JoinKey(basePrefix, dest.FolderPath, name)

		r, err := client.Bucket(bucket).Object(key).NewReader(ctx)
		if err != nil {
			return files, fmt.Errorf("GCS download of %s failed: %w", name, err)
		}
		content, err := cloud.ReadAllMetered(r, r.Attrs.Size, i, name, key, hooks)
		r.Close()
		if err != nil {
			return files, fmt.Errorf("GCS download of %s failed: %w", name, err)
		}

		files = append(files, models.DownloadedFile{Filename: name, Content: content})
		hooks.ItemDone(i, name, key)
	}
	return files, nil
}
