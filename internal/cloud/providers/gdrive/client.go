// Package gdrive stores files in Google Drive. The destination folder
// chain is resolved by name query and created on demand; uploads go
// through the multipart endpoint with a metadata part naming the parent.
//
// Locator forms: a folder path under My Drive, or "drive://<folderId>
// [/subpath]" to anchor at a shared or known folder.
package gdrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/google"

	"github.com/mediasink/mediasink/internal/cloud"
	"github.com/mediasink/mediasink/internal/cloud/credentials"
	"github.com/mediasink/mediasink/internal/cloud/rest"
	"github.com/mediasink/mediasink/internal/models"
	"github.com/mediasink/mediasink/internal/ratelimit"
)

// DisplayName is the human-facing provider name.
const DisplayName = "Google Drive"

const folderMimeType = "application/vnd.google-apps.folder"

// API hosts, overridable in tests.
var (
	driveAPI  = "https://www.googleapis.com/drive/v3"
	uploadAPI = "https://www.googleapis.com/upload/drive/v3"
)

// Locator is a parsed Drive destination: an optional anchor folder ID
// plus a path to resolve beneath it (or beneath My Drive root).
type Locator struct {
	FolderID string
	BasePath string
}

// ParseLocator accepts "drive://<folderId>[/subpath]", a URL whose path
// is the folder path, or a bare folder path.
func ParseLocator(locator string) Locator {
	s := strings.TrimSpace(locator)
	if rest, ok := strings.CutPrefix(s, "drive://"); ok {
		id, sub, _ := strings.Cut(strings.Trim(rest, "/"), "/")
		return Locator{FolderID: id, BasePath: sub}
	}
	if u, err := url.Parse(s); err == nil && u.Scheme != "" {
		return Locator{BasePath: u.Path}
	}
	return Locator{BasePath: s}
}

// AccessToken resolves the credential to a bearer token. JSON credentials
// with a refresh_token go through the shared token manager against
// Google's OAuth endpoint.
func AccessToken(ctx context.Context, credential string) (string, error) {
	if f, ok := credentials.ParseJSON(credential); ok {
		if rt := f.First("refresh_token"); rt != "" {
			cfg := credentials.TokenConfig{
				Provider:     "gdrive",
				ClientID:     f.First("client_id"),
				ClientSecret: f.First("client_secret"),
				RefreshToken: rt,
				Endpoint:     google.Endpoint,
			}
			return credentials.GetManager().AccessToken(ctx, cfg)
		}
		if at := f.First("access_token"); at != "" {
			return at, nil
		}
		return "", fmt.Errorf("%s credential JSON must carry refresh_token or access_token", DisplayName)
	}

	token := strings.TrimSpace(credential)
	if token == "" {
		return "", fmt.Errorf("%s credential must be an OAuth2 access token with drive scope", DisplayName)
	}
	return token, nil
}

// escapeQuery protects a literal inside a Drive search query.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// Client implements cloud.Uploader and cloud.Downloader for Google Drive.
type Client struct {
	mu   sync.Mutex
	rest *rest.Client
}

// New returns a Drive client ready for any destination.
func New() *Client { return &Client{} }

func (c *Client) restClient(credential string) *rest.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rest == nil {
		limiter := ratelimit.GlobalRegistry().Get("gdrive", credential)
		c.rest = rest.New(log.With().Str("provider", "gdrive").Logger(), limiter)
	}
	return c.rest
}

func authHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// resolveParent walks path segment by segment below startID, creating
// missing folders when create is set.
func (c *Client) resolveParent(ctx context.Context, rc *rest.Client, token, startID, path string, create bool) (string, error) {
	parentID := startID
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" {
			continue
		}

		q := fmt.Sprintf("name='%s' and mimeType='%s' and '%s' in parents and trashed=false",
			escapeQuery(seg), folderMimeType, parentID)
		u := driveAPI + "/files?q=" + url.QueryEscape(q) + "&fields=" + url.QueryEscape("files(id,name)")

		var found struct {
			Files []struct {
				ID string `json:"id"`
			} `json:"files"`
		}
		if err := rc.DoJSON(ctx, "GET", u, authHeader(token), nil, &found); err != nil {
			return "", fmt.Errorf("Google Drive folder lookup failed: %w", err)
		}
		if len(found.Files) > 0 {
			parentID = found.Files[0].ID
			continue
		}
		if !create {
			return "", fmt.Errorf("Google Drive folder %q not found", seg)
		}

		meta := map[string]any{"name": seg, "mimeType": folderMimeType, "parents": []string{parentID}}
		var created struct {
			ID string `json:"id"`
		}
		if err := rc.DoJSON(ctx, "POST", driveAPI+"/files", authHeader(token), meta, &created); err != nil {
			return "", fmt.Errorf("Google Drive folder create failed: %w", err)
		}
		parentID = created.ID
	}
	return parentID, nil
}

// parentFor resolves the upload / download parent for a destination.
func (c *Client) parentFor(ctx context.Context, rc *rest.Client, token string, dest models.Destination, create bool) (parentID, pathPrefix string, err error) {
	loc := ParseLocator(dest.Locator)
	pathPrefix = cloud.JoinKey(loc.BasePath, dest.FolderPath)

	startID := loc.FolderID
	if startID == "" {
		startID = "root"
	}
	if pathPrefix == "" {
		return startID, "", nil
	}
	parentID, err = c.resolveParent(ctx, rc, token, startID, pathPrefix, create)
	return parentID, pathPrefix, err
}

// Upload stores a single file.
func (c *Client) Upload(ctx context.Context, data []byte, filename string, dest models.Destination) (models.UploadResult, error) {
	results, err := c.UploadMany(ctx, []models.FileItem{{Filename: filename, Content: data}}, dest, cloud.Hooks{})
	if err != nil {
		return models.UploadResult{}, err
	}
	return results[0], nil
}

// UploadMany stores items sequentially under the resolved parent folder.
// The Bucket field of each result carries the parent folder ID.
func (c *Client) UploadMany(ctx context.Context, items []models.FileItem, dest models.Destination, hooks cloud.Hooks) ([]models.UploadResult, error) {
	token, err := AccessToken(ctx, dest.Credential)
	if err != nil {
		return nil, err
	}
	rc := c.restClient(dest.Credential)

	parentID, pathPrefix, err := c.parentFor(ctx, rc, token, dest, true)
	if err != nil {
		return nil, err
	}

	results := make([]models.UploadResult, 0, len(items))
	for i, item := range items {
		path := cloud.JoinKey(pathPrefix, item.Filename)
		size := int64(len(item.Content))
		metered := cloud.NewMeteredReader(bytes.NewReader(item.Content), size, i, item.Filename, path, hooks)

		body, contentType, total, err := multipartRelated(item.Filename, parentID, cloud.ContentTypeFor(item.Filename), metered, size)
		if err != nil {
			return results, err
		}

		var uploaded struct {
			ID string `json:"id"`
		}
		u := uploadAPI + "/files?uploadType=multipart&fields=id"
		headers := authHeader(token)
		headers["Content-Type"] = contentType
		if err := rc.DoData(ctx, "POST", u, headers, body, total, &uploaded); err != nil {
			return results, fmt.Errorf("Google Drive upload of %s failed: %w", item.Filename, err)
		}

		results = append(results, models.UploadResult{
			Provider: DisplayName,
			Bucket:   parentID,
			Path:     path,
			URL:      fmt.Sprintf("https://drive.google.com/file/d/%s/view", uploaded.ID),
			FileID:   uploaded.ID,
		})
		hooks.ItemDone(i, item.Filename, path)
	}
	return results, nil
}

// multipartRelated assembles the two-part upload body: a JSON metadata
// part naming the file and parent, then the media part. Only the media
// bytes flow through the metered reader, so progress tracks file size.
func multipartRelated(filename, parentID, fileContentType string, media io.Reader, mediaSize int64) (io.Reader, string, int64, error) {
	meta, err := metadataJSON(filename, parentID)
	if err != nil {
		return nil, "", 0, err
	}

	boundary := multipart.NewWriter(io.Discard).Boundary()
	var pre bytes.Buffer
	fmt.Fprintf(&pre, "--%s\r\nContent-Type: application/json; charset=UTF-8\r\n\r\n%s\r\n--%s\r\nContent-Type: %s\r\n\r\n",
		boundary, meta, boundary, fileContentType)
	post := fmt.Sprintf("\r\n--%s--\r\n", boundary)

	total := int64(pre.Len()) + mediaSize + int64(len(post))
	body := io.MultiReader(&pre, media, strings.NewReader(post))
	return body, "multipart/related; boundary=" + boundary, total, nil
}

func metadataJSON(filename, parentID string) ([]byte, error) {
	meta := struct {
		Name    string   `json:"name"`
		Parents []string `json:"parents"`
	}{Name: filename, Parents: []string{parentID}}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal file metadata: %w", err)
	}
	return data, nil
}

// Download fetches a single file by name.
func (c *Client) Download(ctx context.Context, key string, dest models.Destination) (models.DownloadedFile, error) {
	files, err := c.DownloadMany(ctx, []string{key}, dest, cloud.Hooks{})
	if err != nil {
		return models.DownloadedFile{}, err
	}
	return files[0], nil
}

// DownloadMany looks files up by name in the resolved folder and fetches
// their media. Missing folders or names are errors; nothing is created.
func (c *Client) DownloadMany(ctx context.Context, keys []string, dest models.Destination, hooks cloud.Hooks) ([]models.DownloadedFile, error) {
	token, err := AccessToken(ctx, dest.Credential)
	if err != nil {
		return nil, err
	}
	rc := c.restClient(dest.Credential)

	parentID, pathPrefix, err := c.parentFor(ctx, rc, token, dest, false)
	if err != nil {
		return nil, err
	}

	files := make([]models.DownloadedFile, 0, len(keys))
	for i, name := range keys {
		path := cloud.JoinKey(pathPrefix, name)

		q := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false", escapeQuery(name), parentID)
		u := driveAPI + "/files?q=" + url.QueryEscape(q) + "&fields=" + url.QueryEscape("files(id,name,size)")
		var found struct {
			Files []struct {
				ID   string `json:"id"`
				Size int64  `json:"size,string"`
			} `json:"files"`
		}
		if err := rc.DoJSON(ctx, "GET", u, authHeader(token), nil, &found); err != nil {
			return files, fmt.Errorf("Google Drive lookup of %s failed: %w", name, err)
		}
		if len(found.Files) == 0 {
			return files, fmt.Errorf("Google Drive file %q not found", name)
		}
		file := found.Files[0]

		resp, err := rc.Stream(ctx, "GET", driveAPI+"/files/"+file.ID+"?alt=media", authHeader(token), nil)
		if err != nil {
			return files, fmt.Errorf("Google Drive download of %s failed: %w", name, err)
		}

		total := resp.ContentLength
		if total <= 0 {
			total = file.Size
		}
		content, err := cloud.ReadAllMetered(resp.Body, total, i, name, path, hooks)
		resp.Body.Close()
		if err != nil {
			return files, fmt.Errorf("Google Drive download of %s failed: %w", name, err)
		}

		files = append(files, models.DownloadedFile{Filename: name, Content: content})
		hooks.ItemDone(i, name, path)
	}
	return files, nil
}
