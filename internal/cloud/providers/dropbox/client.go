// Package dropbox stores files in a Dropbox account. Folder paths are
// created one segment at a time before the first upload; uploads
// overwrite silently. Accepts a bare access token or an OAuth app
// credential with a refresh token.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/mediasink/mediasink/internal/cloud"
	"github.com/mediasink/mediasink/internal/cloud/credentials"
	"github.com/mediasink/mediasink/internal/cloud/rest"
	"github.com/mediasink/mediasink/internal/models"
	"github.com/mediasink/mediasink/internal/ratelimit"
)

// DisplayName is the human-facing provider name.
const DisplayName = "Dropbox"

// API hosts, overridable in tests. Control-plane calls go to apiBase,
// file content moves through contentBase.
var (
	apiBase     = "https://api.dropboxapi.com"
	contentBase = "https://content.dropboxapi.com"
	tokenURL    = "https://api.dropboxapi.com/oauth2/token"
)

// ResolvePath maps locator + folder path + filename onto an absolute
// Dropbox path. A locator with a scheme contributes only its path part.
func ResolvePath(locator, folderPath, filename string) string {
	base := strings.TrimSpace(locator)
	if u, err := url.Parse(base); err == nil && u.Scheme != "" {
		base = u.Path
	}
	return "/" + cloud.JoinKey(base, folderPath, filename)
}

// AccessToken resolves the credential to a bearer token. JSON credentials
// with a refresh_token go through the shared token manager.
func AccessToken(ctx context.Context, credential string) (string, error) {
	if f, ok := credentials.ParseJSON(credential); ok {
		if rt := f.First("refresh_token"); rt != "" {
			cfg := credentials.TokenConfig{
				Provider:     "dropbox",
				ClientID:     f.First("app_key", "client_id"),
				ClientSecret: f.First("app_secret", "client_secret"),
				RefreshToken: rt,
				Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
			}
			return credentials.GetManager().AccessToken(ctx, cfg)
		}
		if at := f.First("access_token"); at != "" {
			return at, nil
		}
		return "", fmt.Errorf("%s credential JSON must carry access_token or refresh_token", DisplayName)
	}

	token := strings.TrimSpace(credential)
	if token == "" {
		return "", fmt.Errorf("%s access token is required", DisplayName)
	}
	return token, nil
}

// apiArg renders a Dropbox-API-Arg header value. The header must stay
// ASCII, so runes outside 0x20..0x7e are \u-escaped per the API contract.
func apiArg(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal API arg: %w", err)
	}
	var b strings.Builder
	for _, r := range string(data) {
		if r < 0x20 || r > 0x7e {
			fmt.Fprintf(&b, "\\u%04x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// Client implements cloud.Uploader and cloud.Downloader for Dropbox.
type Client struct {
	mu   sync.Mutex
	rest *rest.Client
}

// New returns a Dropbox client ready for any destination.
func New() *Client { return &Client{} }

func (c *Client) restClient(credential string) *rest.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rest == nil {
		limiter := ratelimit.GlobalRegistry().Get("dropbox", credential)
		c.rest = rest.New(log.With().Str("provider", "dropbox").Logger(), limiter)
	}
	return c.rest
}

// ensureFolders creates each path segment in turn. Conflicts and other
// create errors are ignored; a genuinely broken path surfaces on upload.
func (c *Client) ensureFolders(ctx context.Context, rc *rest.Client, token, parent string) {
	parent = strings.Trim(parent, "/")
	if parent == "" {
		return
	}
	current := ""
	for _, seg := range strings.Split(parent, "/") {
		current = current + "/" + seg
		err := rc.DoJSON(ctx, "POST", apiBase+"/2/files/create_folder_v2", map[string]string{
			"Authorization": "Bearer " + token,
		}, map[string]any{"path": current, "autorename": false}, nil)
		if err != nil {
			log.Debug().Str("path", current).Err(err).Msg("dropbox create_folder skipped")
		}
	}
}

type uploadArg struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	Autorename bool   `json:"autorename"`
	Mute       bool   `json:"mute"`
}

// Upload stores a single file.
func (c *Client) Upload(ctx context.Context, data []byte, filename string, dest models.Destination) (models.UploadResult, error) {
	results, err := c.UploadMany(ctx, []models.FileItem{{Filename: filename, Content: data}}, dest, cloud.Hooks{})
	if err != nil {
		return models.UploadResult{}, err
	}
	return results[0], nil
}

// UploadMany stores items sequentially, overwriting existing files.
// Dropbox exposes no stable public URL for plain uploads, so results
// carry only the path.
func (c *Client) UploadMany(ctx context.Context, items []models.FileItem, dest models.Destination, hooks cloud.Hooks) ([]models.UploadResult, error) {
	token, err := AccessToken(ctx, dest.Credential)
	if err != nil {
		return nil, err
	}
	rc := c.restClient(dest.Credential)

	parent := strings.TrimSuffix(ResolvePath(dest.Locator, dest.FolderPath, ""), "/")
	c.ensureFolders(ctx, rc, token, parent)

	results := make([]models.UploadResult, 0, len(items))
	for i, item := range items {
		path := ResolvePath(dest.Locator, dest.FolderPath, item.Filename)
		arg, err := apiArg(uploadArg{Path: path, Mode: "overwrite", Mute: true})
		if err != nil {
			return results, err
		}

		size := int64(len(item.Content))
		body := cloud.NewMeteredReader(bytes.NewReader(item.Content), size, i, item.Filename, path, hooks)
		headers := map[string]string{
			"Authorization":   "Bearer " + token,
			"Dropbox-API-Arg": arg,
			"Content-Type":    "application/octet-stream",
		}
		if err := rc.DoData(ctx, "POST", contentBase+"/2/files/upload", headers, body, size, nil); err != nil {
			return results, fmt.Errorf("Dropbox upload of %s failed: %w", item.Filename, err)
		}

		results = append(results, models.UploadResult{
			Provider: DisplayName,
			Path:     path,
		})
		hooks.ItemDone(i, item.Filename, path)
	}
	return results, nil
}

// Download fetches a single file by path.
func (c *Client) Download(ctx context.Context, key string, dest models.Destination) (models.DownloadedFile, error) {
	files, err := c.DownloadMany(ctx, []string{key}, dest, cloud.Hooks{})
	if err != nil {
		return models.DownloadedFile{}, err
	}
	return files[0], nil
}

// DownloadMany fetches files sequentially via files/download.
func (c *Client) DownloadMany(ctx context.Context, keys []string, dest models.Destination, hooks cloud.Hooks) ([]models.DownloadedFile, error) {
	token, err := AccessToken(ctx, dest.Credential)
	if err != nil {
		return nil, err
	}
	rc := c.restClient(dest.Credential)

	files := make([]models.DownloadedFile, 0, len(keys))
	for i, name := range keys {
		path := ResolvePath(dest.Locator, dest.FolderPath, name)
		arg, err := apiArg(map[string]string{"path": path})
		if err != nil {
			return files, err
		}

		resp, err := rc.Stream(ctx, "POST", contentBase+"/2/files/download", map[string]string{
			"Authorization":   "Bearer " + token,
			"Dropbox-API-Arg": arg,
		}, nil)
		if err != nil {
			return files, fmt.Errorf("Dropbox download of %s failed: %w", name, err)
		}

		content, err := cloud.ReadAllMetered(resp.Body, resp.ContentLength, i, name, path, hooks)
		resp.Body.Close()
		if err != nil {
			return files, fmt.Errorf("Dropbox download of %s failed: %w", name, err)
		}

		files = append(files, models.DownloadedFile{Filename: name, Content: content})
		hooks.ItemDone(i, name, path)
	}
	return files, nil
}
