// Package onedrive stores files in OneDrive through the Microsoft Graph
// API. The destination folder chain is resolved from the drive root by
// listing children, creating missing folders with conflictBehavior
// replace; uploads PUT the bytes at the resolved parent.
package onedrive

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/microsoft"

	"github.com/mediasink/mediasink/internal/cloud"
	"github.com/mediasink/mediasink/internal/cloud/credentials"
	"github.com/mediasink/mediasink/internal/cloud/rest"
	"github.com/mediasink/mediasink/internal/models"
	"github.com/mediasink/mediasink/internal/ratelimit"
)

// DisplayName is the human-facing provider name.
const DisplayName = "OneDrive"

// DefaultTenant is used when an OAuth credential names no tenant.
const DefaultTenant = "common"

// graphAPI is the Graph v1.0 host, overridable in tests.
var graphAPI = "https://graph.microsoft.com/v1.0"

// oauthScopes cover file writes plus refresh token issuance.
var oauthScopes = []string{"offline_access", "Files.ReadWrite.All"}

// ResolvePath maps locator + folder path + filename onto an absolute
// drive path. A locator with a scheme contributes only its path part.
func ResolvePath(locator, folderPath, filename string) string {
	base := strings.TrimSpace(locator)
	if u, err := url.Parse(base); err == nil && u.Scheme != "" && u.Path != "" {
		base = u.Path
	}
	return "/" + cloud.JoinKey(base, folderPath, filename)
}

// AccessToken resolves the credential to a bearer token. JSON credentials
// with a refresh_token go through the shared token manager against the
// Azure AD endpoint for the credential's tenant.
func AccessToken(ctx context.Context, credential string) (string, error) {
	if f, ok := credentials.ParseJSON(credential); ok {
		if rt := f.First("refresh_token"); rt != "" {
			tenant := f.First("tenant", "tenant_id")
			if tenant == "" {
				tenant = DefaultTenant
			}
			cfg := credentials.TokenConfig{
				Provider:     "onedrive",
				ClientID:     f.First("client_id"),
				ClientSecret: f.First("client_secret"),
				RefreshToken: rt,
				Endpoint:     microsoft.AzureADEndpoint(tenant),
				Scopes:       oauthScopes,
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
		return "", fmt.Errorf("%s credential must be a valid OAuth 2.0 access token", DisplayName)
	}
	return token, nil
}

// Client implements cloud.Uploader and cloud.Downloader for OneDrive.
type Client struct {
	mu   sync.Mutex
	rest *rest.Client
}

// New returns a OneDrive client ready for any destination.
func New() *Client { return &Client{} }

func (c *Client) restClient(credential string) *rest.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rest == nil {
		limiter := ratelimit.GlobalRegistry().Get("onedrive", credential)
		c.rest = rest.New(log.With().Str("provider", "onedrive").Logger(), limiter)
	}
	return c.rest
}

func authHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

type driveItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	WebURL string `json:"webUrl"`
	Size   int64  `json:"size"`
}

// ensureParent walks the folder chain from the drive root, creating
// missing segments, and returns the parent item ID.
func (c *Client) ensureParent(ctx context.Context, rc *rest.Client, token, pathPrefix string) (string, error) {
	var root driveItem
	if err := rc.DoJSON(ctx, "GET", graphAPI+"/me/drive/root", authHeader(token), nil, &root); err != nil {
		return "", fmt.Errorf("OneDrive root lookup failed: %w", err)
	}
	parentID := root.ID

	for _, seg := range strings.Split(strings.Trim(pathPrefix, "/"), "/") {
		if seg == "" {
			continue
		}

		id, err := c.findChild(ctx, rc, token, parentID, seg)
		if err != nil {
			return "", err
		}
		if id != "" {
			parentID = id
			continue
		}

		meta := map[string]any{
			"name":                              seg,
			"folder":                            map[string]any{},
			"@microsoft.graph.conflictBehavior": "replace",
		}
		var created driveItem
		err = rc.DoJSON(ctx, "POST", graphAPI+"/me/drive/items/"+parentID+"/children", authHeader(token), meta, &created)
		if err != nil {
			return "", fmt.Errorf("OneDrive folder create failed: %w", err)
		}
		parentID = created.ID
	}
	return parentID, nil
}

// findChild looks a child item up by name, following list pagination.
func (c *Client) findChild(ctx context.Context, rc *rest.Client, token, parentID, name string) (string, error) {
	u := graphAPI + "/me/drive/items/" + parentID + "/children?$select=id,name"
	for u != "" {
		var page struct {
			Value    []driveItem `json:"value"`
			NextLink string      `json:"@odata.nextLink"`
		}
		if err := rc.DoJSON(ctx, "GET", u, authHeader(token), nil, &page); err != nil {
			return "", fmt.Errorf("OneDrive folder listing failed: %w", err)
		}
		for _, item := range page.Value {
			if item.Name == name {
				return item.ID, nil
			}
		}
		u = page.NextLink
	}
	return "", nil
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
func (c *Client) UploadMany(ctx context.Context, items []models.FileItem, dest models.Destination, hooks cloud.Hooks) ([]models.UploadResult, error) {
	token, err := AccessToken(ctx, dest.Credential)
	if err != nil {
		return nil, err
	}
	rc := c.restClient(dest.Credential)

	parentPath := strings.TrimSuffix(ResolvePath(dest.Locator, dest.FolderPath, ""), "/")
	parentID, err := c.ensureParent(ctx, rc, token, parentPath)
	if err != nil {
		return nil, err
	}

	results := make([]models.UploadResult, 0, len(items))
	for i, item := range items {
		path := ResolvePath(dest.Locator, dest.FolderPath, item.Filename)
		size := int64(len(item.Content))
		body := cloud.NewMeteredReader(bytes.NewReader(item.Content), size, i, item.Filename, path, hooks)

		u := graphAPI + "/me/drive/items/" + parentID + ":/" + url.PathEscape(item.Filename) + ":/content"
		headers := authHeader(token)
		headers["Content-Type"] = cloud.ContentTypeFor(item.Filename)

		var uploaded driveItem
		if err := rc.DoData(ctx, "PUT", u, headers, body, size, &uploaded); err != nil {
			return results, fmt.Errorf("OneDrive upload of %s failed: %w", item.Filename, err)
		}

		results = append(results, models.UploadResult{
			Provider: DisplayName,
			Path:     path,
			URL:      uploaded.WebURL,
			FileID:   uploaded.ID,
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

// DownloadMany fetches files by root-relative path. Graph answers the
// content request with a redirect to a pre-authenticated URL, which the
// transport follows.
func (c *Client) DownloadMany(ctx context.Context, keys []string, dest models.Destination, hooks cloud.Hooks) ([]models.DownloadedFile, error) {
	token, err := AccessToken(ctx, dest.Credential)
	if err != nil {
		return nil, err
	}
	rc := c.restClient(dest.Credential)

	files := make([]models.DownloadedFile, 0, len(keys))
	for i, name := range keys {
		path := ResolvePath(dest.Locator, dest.FolderPath, name)
		u := graphAPI + "/me/drive/root:/" + cloud.EscapePath(strings.TrimPrefix(path, "/")) + ":/content"

		resp, err := rc.Stream(ctx, "GET", u, authHeader(token), nil)
		if err != nil {
			return files, fmt.Errorf("OneDrive download of %s failed: %w", name, err)
		}

		content, err := cloud.ReadAllMetered(resp.Body, resp.ContentLength, i, name, path, hooks)
		resp.Body.Close()
		if err != nil {
			return files, fmt.Errorf("OneDrive download of %s failed: %w", name, err)
		}

		files = append(files, models.DownloadedFile{Filename: name, Content: content})
		hooks.ItemDone(i, name, path)
	}
	return files, nil
}
