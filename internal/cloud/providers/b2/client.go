// Package b2 stores objects in Backblaze B2 through the native B2 REST
// API: b2_authorize_account, b2_list_buckets to resolve the bucket ID,
// b2_get_upload_url, then one POST per object.
package b2

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mediasink/mediasink/internal/cloud"
	"github.com/mediasink/mediasink/internal/cloud/rest"
	"github.com/mediasink/mediasink/internal/models"
	"github.com/mediasink/mediasink/internal/ratelimit"
)

// DisplayName is the human-facing provider name.
const DisplayName = "Backblaze B2"

// authorizeURL is the fixed entry point of the B2 API; every other URL
// comes from its response. Overridable in tests.
var authorizeURL = "https://api.backblazeb2.com/b2api/v2/b2_authorize_account"

// authState is the slice of the b2_authorize_account response we need.
type authState struct {
	AccountID          string `json:"accountId"`
	AuthorizationToken string `json:"authorizationToken"`
	APIURL             string `json:"apiUrl"`
	DownloadURL        string `json:"downloadUrl"`
}

// Client implements cloud.Uploader and cloud.Downloader for Backblaze B2.
// The account authorization and bucket name to ID mapping are cached for
// the client's lifetime.
type Client struct {
	mu        sync.Mutex
	rest      *rest.Client
	auth      *authState
	authKey   string
	bucketIDs map[string]string
}

// New returns a B2 client ready for any destination.
func New() *Client {
	return &Client{bucketIDs: make(map[string]string)}
}

func (c *Client) restClient(credential string) *rest.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rest == nil {
		limiter := ratelimit.GlobalRegistry().Get("b2", credential)
		c.rest = rest.New(log.With().Str("provider", "b2").Logger(), limiter)
	}
	return c.rest
}

func (c *Client) authorize(ctx context.Context, rc *rest.Client, creds Credentials) (*authState, error) {
	cacheKey := creds.KeyID + ":" + creds.AppKey

	c.mu.Lock()
	if c.auth != nil && c.authKey == cacheKey {
		auth := c.auth
		c.mu.Unlock()
		return auth, nil
	}
	c.mu.Unlock()

	basic := base64.StdEncoding.EncodeToString([]byte(cacheKey))
	var auth authState
	err := rc.DoJSON(ctx, "GET", authorizeURL, map[string]string{
		"Authorization": "Basic " + basic,
	}, nil, &auth)
	if err != nil {
		return nil, fmt.Errorf("B2 authorization failed: %w", err)
	}

	c.mu.Lock()
	c.auth = &auth
	c.authKey = cacheKey
	c.mu.Unlock()
	return &auth, nil
}

func (c *Client) bucketID(ctx context.Context, rc *rest.Client, auth *authState, bucket string) (string, error) {
	c.mu.Lock()
	if id, ok := c.bucketIDs[bucket]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	var out struct {
		Buckets []struct {
			BucketID   string `json:"bucketId"`
			BucketName string `json:"bucketName"`
		} `json:"buckets"`
	}
	body := map[string]string{"accountId": auth.AccountID, "bucketName": bucket}
	err := rc.DoJSON(ctx, "POST", auth.APIURL+"/b2api/v2/b2_list_buckets", map[string]string{
		"Authorization": auth.AuthorizationToken,
	}, body, &out)
	if err != nil {
		return "", fmt.Errorf("B2 bucket lookup failed: %w", err)
	}

	for _, b := range out.Buckets {
		if b.BucketName == bucket {
			c.mu.Lock()
			c.bucketIDs[bucket] = b.BucketID
			c.mu.Unlock()
			return b.BucketID, nil
		}
	}
	return "", fmt.Errorf("B2 bucket %q not found (check the application key's bucket restrictions)", bucket)
}

// uploadTarget is a b2_get_upload_url response: a single-connection
// upload endpoint with its own auth token.
type uploadTarget struct {
	UploadURL          string `json:"uploadUrl"`
	AuthorizationToken string `json:"authorizationToken"`
}

func (c *Client) uploadURL(ctx context.Context, rc *rest.Client, auth *authState, bucketID string) (*uploadTarget, error) {
	var target uploadTarget
	err := rc.DoJSON(ctx, "POST", auth.APIURL+"/b2api/v2/b2_get_upload_url", map[string]string{
		"Authorization": auth.AuthorizationToken,
	}, map[string]string{"bucketId": bucketID}, &target)
	if err != nil {
		return nil, fmt.Errorf("B2 upload URL request failed: %w", err)
	}
	return &target, nil
}

// Upload stores a single object.
func (c *Client) Upload(ctx context.Context, data []byte, filename string, dest models.Destination) (models.UploadResult, error) {
	results, err := c.UploadMany(ctx, []models.FileItem{{Filename: filename, Content: data}}, dest, cloud.Hooks{})
	if err != nil {
		return models.UploadResult{}, err
	}
	return results[0], nil
}

// UploadMany stores items sequentially over one upload URL. The content
// type is b2/x-auto so the service derives it from the file name.
func (c *Client) UploadMany(ctx context.Context, items []models.FileItem, dest models.Destination, hooks cloud.Hooks) ([]models.UploadResult, error) {
	creds, err := ParseCredentials(dest.Credential)
	if err != nil {
		return nil, err
	}
	bucket, basePrefix, err := ParseLocator(dest.Locator)
	if err != nil {
		return nil, err
	}

	rc := c.restClient(dest.Credential)
	auth, err := c.authorize(ctx, rc, creds)
	if err != nil {
		return nil, err
	}
	id, err := c.bucketID(ctx, rc, auth, bucket)
	if err != nil {
		return nil, err
	}
	target, err := c.uploadURL(ctx, rc, auth, id)
	if err != nil {
		return nil, err
	}

	results := make([]models.UploadResult, 0, len(items))
	for i, item := range items {
		key := cloud.JoinKey(basePrefix, dest.FolderPath, item.Filename)
		size := int64(len(item.Content))
		sum := sha1.Sum(item.Content)

		headers := map[string]string{
			"Authorization":     target.AuthorizationToken,
			"X-Bz-File-Name":    cloud.EscapePath(key),
			"Content-Type":      "b2/x-auto",
			"X-Bz-Content-Sha1": hex.EncodeToString(sum[:]),
		}
		body := cloud.NewMeteredReader(bytes.NewReader(item.Content), size, i, item.Filename, key, hooks)

		var uploaded struct {
			FileID string `json:"fileId"`
		}
		if err := rc.DoData(ctx, "POST", target.UploadURL, headers, body, size, &uploaded); err != nil {
			return results, fmt.Errorf("B2 upload of %s failed: %w", item.Filename, err)
		}

		results = append(results, models.UploadResult{
			Provider: DisplayName,
			Bucket:   bucket,
			Path:     key,
			URL:      fmt.Sprintf("%s/file/%s/%s", auth.DownloadURL, bucket, cloud.EscapePath(key)),
			FileID:   uploaded.FileID,
		})
		hooks.ItemDone(i, item.Filename, key)
	}
	return results, nil
}

// Download fetches a single object by name.
func (c *Client) Download(ctx context.Context, key string, dest models.Destination) (models.DownloadedFile, error) {
	files, err := c.DownloadMany(ctx, []string{key}, dest, cloud.Hooks{})
	if err != nil {
		return models.DownloadedFile{}, err
	}
	return files[0], nil
}

// DownloadMany fetches objects by name from the account's download host.
func (c *Client) DownloadMany(ctx context.Context, keys []string, dest models.Destination, hooks cloud.Hooks) ([]models.DownloadedFile, error) {
	creds, err := ParseCredentials(dest.Credential)
	if err != nil {
		return nil, err
	}
	bucket, basePrefix, err := ParseLocator(dest.Locator)
	if err != nil {
		return nil, err
	}

	rc := c.restClient(dest.Credential)
	auth, err := c.authorize(ctx, rc, creds)
	if err != nil {
		return nil, err
	}

	files := make([]models.DownloadedFile, 0, len(keys))
	for i, name := range keys {
		key := cloud.JoinKey(basePrefix, dest.FolderPath, name)
		url := fmt.Sprintf("%s/file/%s/%s", auth.DownloadURL, bucket, cloud.EscapePath(key))

		resp, err := rc.Stream(ctx, "GET", url, map[string]string{
			"Authorization": auth.AuthorizationToken,
		}, nil)
		if err != nil {
			return files, fmt.Errorf("B2 download of %s failed: %w", name, err)
		}

		content, err := cloud.ReadAllMetered(resp.Body, resp.ContentLength, i, name, key, hooks)
		resp.Body.Close()
		if err != nil {
			return files, fmt.Errorf("B2 download of %s failed: %w", name, err)
		}

		files = append(files, models.DownloadedFile{Filename: name, Content: content})
		hooks.ItemDone(i, name, key)
	}
	return files, nil
}
