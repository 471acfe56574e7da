// Package uploadthing stores files through the UploadThing v6 REST API:
// one registration call returns a presigned form POST target per file,
// then the bytes go straight to storage. The destination locator is
// unused; files are addressed by their returned key on the public CDN.
package uploadthing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mediasink/mediasink/internal/cloud"
	"github.com/mediasink/mediasink/internal/cloud/credentials"
	"github.com/mediasink/mediasink/internal/cloud/rest"
	"github.com/mediasink/mediasink/internal/constants"
	"github.com/mediasink/mediasink/internal/models"
	"github.com/mediasink/mediasink/internal/ratelimit"
)

// DisplayName is the human-facing provider name.
const DisplayName = "UploadThing"

// API and CDN hosts, overridable in tests.
var (
	apiBase = "https://api.uploadthing.com"
	cdnBase = "https://utfs.io"
)

// ParseSecret accepts a bare secret key or JSON carrying one of
// secret / api_key / key.
func ParseSecret(credential string) (string, error) {
	s := strings.TrimSpace(credential)
	if s == "" {
		return "", fmt.Errorf("%s secret key is required (e.g. 'sk_...')", DisplayName)
	}
	if f, ok := credentials.ParseJSON(s); ok {
		if secret := f.First("secret", "api_key", "key"); secret != "" {
			return secret, nil
		}
		return "", fmt.Errorf("%s credential JSON must include one of 'secret', 'api_key' or 'key'", DisplayName)
	}
	return s, nil
}

// Client implements cloud.Uploader and cloud.Downloader for UploadThing.
type Client struct {
	mu   sync.Mutex
	rest *rest.Client
}

// New returns an UploadThing client ready for any destination.
func New() *Client { return &Client{} }

func (c *Client) restClient(credential string) *rest.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rest == nil {
		limiter := ratelimit.GlobalRegistry().Get("uploadthing", credential)
		c.rest = rest.New(log.With().Str("provider", "uploadthing").Logger(), limiter)
	}
	return c.rest
}

// presignedFile is one entry of the v6 uploadFiles response: a form POST
// target plus the fields it requires.
type presignedFile struct {
	Key     string            `json:"key"`
	URL     string            `json:"url"`
	Fields  map[string]string `json:"fields"`
	FileURL string            `json:"fileUrl"`
}

type fileMeta struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// register announces the batch and collects one presigned target per file.
func (c *Client) register(ctx context.Context, rc *rest.Client, secret string, metas []fileMeta) ([]presignedFile, error) {
	body := map[string]any{
		"files":              metas,
		"acl":                "public-read",
		"contentDisposition": "inline",
	}
	var out struct {
		Data []presignedFile `json:"data"`
	}
	err := rc.DoJSON(ctx, "POST", apiBase+"/v6/uploadFiles", map[string]string{
		"x-uploadthing-api-key": secret,
	}, body, &out)
	if err != nil {
		return nil, fmt.Errorf("UploadThing file registration failed: %w", err)
	}
	if len(out.Data) != len(metas) {
		return nil, fmt.Errorf("UploadThing returned %d upload targets for %d files", len(out.Data), len(metas))
	}
	return out.Data, nil
}

// Upload stores a single file.
func (c *Client) Upload(ctx context.Context, data []byte, filename string, dest models.Destination) (models.UploadResult, error) {
	results, err := c.UploadMany(ctx, []models.FileItem{{Filename: filename, Content: data}}, dest, cloud.Hooks{})
	if err != nil {
		return models.UploadResult{}, err
	}
	return results[0], nil
}

// UploadMany registers the whole batch in one call, then posts each
// file's bytes to its presigned target. The folder path is folded into
// the registered name; UploadThing has no real folders.
func (c *Client) UploadMany(ctx context.Context, items []models.FileItem, dest models.Destination, hooks cloud.Hooks) ([]models.UploadResult, error) {
	secret, err := ParseSecret(dest.Credential)
	if err != nil {
		return nil, err
	}
	rc := c.restClient(dest.Credential)

	metas := make([]fileMeta, len(items))
	for i, item := range items {
		metas[i] = fileMeta{
			Name: cloud.JoinKey(dest.FolderPath, item.Filename),
			Size: int64(len(item.Content)),
			Type: cloud.ContentTypeFor(item.Filename),
		}
	}
	presigned, err := c.register(ctx, rc, secret, metas)
	if err != nil {
		return nil, err
	}

	results := make([]models.UploadResult, 0, len(items))
	for i, item := range items {
		target := presigned[i]
		size := int64(len(item.Content))

		path := target.Key
		if path == "" {
			path = metas[i].Name
		}
		metered := cloud.NewMeteredReader(bytes.NewReader(item.Content), size, i, item.Filename, path, hooks)

		body, contentType, total, err := presignedForm(target.Fields, metas[i].Name, metas[i].Type, metered, size)
		if err != nil {
			return results, err
		}
		if err := rc.DoData(ctx, "POST", target.URL, map[string]string{"Content-Type": contentType}, body, total, nil); err != nil {
			return results, fmt.Errorf("UploadThing upload of %s failed: %w", item.Filename, err)
		}

		fileURL := target.FileURL
		if fileURL == "" && target.Key != "" {
			fileURL = cdnBase + "/f/" + url.PathEscape(target.Key)
		}
		results = append(results, models.UploadResult{
			Provider: DisplayName,
			Path:     path,
			URL:      fileURL,
			FileID:   target.Key,
		})
		hooks.ItemDone(i, item.Filename, path)
	}
	return results, nil
}

// presignedForm assembles the multipart form for a presigned POST: the
// returned fields first, the file part last. Only the file bytes flow
// through the metered reader.
func presignedForm(fields map[string]string, name, contentType string, file io.Reader, fileSize int64) (io.Reader, string, int64, error) {
	var pre bytes.Buffer
	w := multipart.NewWriter(&pre)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", 0, fmt.Errorf("failed to build upload form: %w", err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	if _, err := w.CreatePart(h); err != nil {
		return nil, "", 0, fmt.Errorf("failed to build upload form: %w", err)
	}

	epilogue := "\r\n--" + w.Boundary() + "--\r\n"
	total := int64(pre.Len()) + fileSize + int64(len(epilogue))
	body := io.MultiReader(bytes.NewReader(pre.Bytes()), file, strings.NewReader(epilogue))
	return body, w.FormDataContentType(), total, nil
}

// Download fetches a single file by key or URL.
func (c *Client) Download(ctx context.Context, key string, dest models.Destination) (models.DownloadedFile, error) {
	files, err := c.DownloadMany(ctx, []string{key}, dest, cloud.Hooks{})
	if err != nil {
		return models.DownloadedFile{}, err
	}
	return files[0], nil
}

// DownloadMany fetches files from the public CDN. Full URLs pass
// through untouched; bare keys resolve to the utfs.io pattern.
func (c *Client) DownloadMany(ctx context.Context, keys []string, dest models.Destination, hooks cloud.Hooks) ([]models.DownloadedFile, error) {
	rc := c.restClient(dest.Credential)

	files := make([]models.DownloadedFile, 0, len(keys))
	for i, name := range keys {
		u := name
		if !strings.HasPrefix(name, "http://") && !strings.HasPrefix(name, "https://") {
			u = cdnBase + "/f/" + url.PathEscape(name)
		}

		resp, err := rc.Stream(ctx, "GET", u, map[string]string{
			"User-Agent": constants.HTTPDownloadUserAgent,
		}, nil)
		if err != nil {
			return files, fmt.Errorf("UploadThing download of %s failed: %w", name, err)
		}

		content, err := cloud.ReadAllMetered(resp.Body, resp.ContentLength, i, name, name, hooks)
		resp.Body.Close()
		if err != nil {
			return files, fmt.Errorf("UploadThing download of %s failed: %w", name, err)
		}

		files = append(files, models.DownloadedFile{Filename: name, Content: content})
		hooks.ItemDone(i, name, name)
	}
	return files, nil
}
