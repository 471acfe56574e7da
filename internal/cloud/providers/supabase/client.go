// Package supabase stores objects in Supabase Storage over the storage
// REST API. The credential names the project URL and an anon or
// service_role JWT; the locator names the bucket. Row-level-security
// rejections are rewritten into actionable errors because the raw API
// response only says "new row violates row-level security policy".
package supabase

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mediasink/mediasink/internal/cloud"
	"github.com/mediasink/mediasink/internal/cloud/credentials"
	"github.com/mediasink/mediasink/internal/cloud/rest"
	"github.com/mediasink/mediasink/internal/models"
	"github.com/mediasink/mediasink/internal/ratelimit"
)

// DisplayName is the human-facing provider name.
const DisplayName = "Supabase Storage"

// Project is a parsed Supabase credential.
type Project struct {
	URL string
	Key string
}

// ParseCredentials accepts JSON {"url": ..., "key": ...} or "url|key".
// The key must look like a JWT; anything else gets a pointer to where
// the real keys live.
func ParseCredentials(credential string) (Project, error) {
	s := strings.TrimSpace(credential)

	if f, ok := credentials.ParseJSON(s); ok {
		p := Project{URL: f.First("url"), Key: f.First("key")}
		if p.URL == "" || p.Key == "" {
			return Project{}, fmt.Errorf("%s credential must be JSON with url/key or 'url|key'", DisplayName)
		}
		if !credentials.LooksLikeJWT(p.Key) {
			return Project{}, fmt.Errorf("%s key must be a valid anon/service_role JWT (see Project Settings → API → Project API keys)", DisplayName)
		}
		return p, nil
	}

	if rawURL, key, ok := strings.Cut(s, "|"); ok {
		p := Project{URL: strings.TrimSpace(rawURL), Key: strings.TrimSpace(key)}
		if !credentials.LooksLikeJWT(p.Key) {
			return Project{}, fmt.Errorf("%s key must be a valid anon/service_role JWT (use 'https://PROJECT.supabase.co|<JWT>')", DisplayName)
		}
		return p, nil
	}

	return Project{}, fmt.Errorf("%s credential must be JSON with url/key or 'url|key'", DisplayName)
}

// ParseBucket extracts the bucket name from the locator. Anything after
// the bucket is ignored; object prefixes come from the folder path.
func ParseBucket(locator string) (string, error) {
	s := strings.TrimSpace(locator)
	if u, err := url.Parse(s); err == nil && u.Scheme != "" {
		if u.Host != "" {
			s = u.Host
		} else {
			s = strings.TrimLeft(u.Path, "/")
		}
	}
	bucket, _, _ := strings.Cut(strings.Trim(s, "/"), "/")
	if bucket == "" {
		return "", fmt.Errorf("%s: destination locator must name a bucket", DisplayName)
	}
	return bucket, nil
}

// jwtRole decodes the role claim from a Supabase JWT, best effort.
func jwtRole(token string) string {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ""
	}
	payload := parts[1]
	if m := len(payload) % 4; m != 0 {
		payload += strings.Repeat("=", 4-m)
	}
	data, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return ""
	}
	var claims struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(data, &claims); err != nil {
		return ""
	}
	return claims.Role
}

// isRLSBlocked reports whether an API error is a row-level-security
// rejection.
func isRLSBlocked(err error) bool {
	var apiErr *rest.APIError
	return errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Body), "row-level security")
}

// Client implements cloud.Uploader and cloud.Downloader for Supabase
// Storage.
type Client struct {
	mu   sync.Mutex
	rest *rest.Client
}

// New returns a Supabase client ready for any destination.
func New() *Client { return &Client{} }

func (c *Client) restClient(credential string) *rest.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rest == nil {
		limiter := ratelimit.GlobalRegistry().Get("supabase", credential)
		c.rest = rest.New(log.With().Str("provider", "supabase").Logger(), limiter)
	}
	return c.rest
}

func (p Project) objectURL(bucket, path string) string {
	return strings.TrimSuffix(p.URL, "/") + "/storage/v1/object/" + bucket + "/" + cloud.EscapePath(path)
}

// PublicURL is where a public bucket serves the object.
func (p Project) PublicURL(bucket, path string) string {
	return strings.TrimSuffix(p.URL, "/") + "/storage/v1/object/public/" + bucket + "/" + cloud.EscapePath(path)
}

func (p Project) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + p.Key,
		"apikey":        p.Key,
	}
}

// Upload stores a single object.
func (c *Client) Upload(ctx context.Context, data []byte, filename string, dest models.Destination) (models.UploadResult, error) {
	results, err := c.UploadMany(ctx, []models.FileItem{{Filename: filename, Content: data}}, dest, cloud.Hooks{})
	if err != nil {
		return models.UploadResult{}, err
	}
	return results[0], nil
}

// UploadMany stores items sequentially with upsert semantics. Results
// carry the bucket's public URL for each object; whether it serves
// depends on the bucket being public.
func (c *Client) UploadMany(ctx context.Context, items []models.FileItem, dest models.Destination, hooks cloud.Hooks) ([]models.UploadResult, error) {
	project, err := ParseCredentials(dest.Credential)
	if err != nil {
		return nil, err
	}
	bucket, err := ParseBucket(dest.Locator)
	if err != nil {
		return nil, err
	}
	rc := c.restClient(dest.Credential)

	results := make([]models.UploadResult, 0, len(items))
	for i, item := range items {
		path := cloud.JoinKey(dest.FolderPath, item.Filename)
		size := int64(len(item.Content))
		body := cloud.NewMeteredReader(bytes.NewReader(item.Content), size, i, item.Filename, path, hooks)

		headers := project.headers()
		headers["Content-Type"] = cloud.ContentTypeFor(item.Filename)
		headers["x-upsert"] = "true"

		if err := rc.DoData(ctx, "POST", project.objectURL(bucket, path), headers, body, size, nil); err != nil {
			if isRLSBlocked(err) && jwtRole(project.Key) != "service_role" {
				return results, fmt.Errorf("Supabase Storage upload blocked by RLS. Use a service_role key, or add an INSERT policy on storage.objects for bucket_id='%s': %w", bucket, err)
			}
			return results, fmt.Errorf("Supabase Storage upload of %s failed: %w", item.Filename, err)
		}

		results = append(results, models.UploadResult{
			Provider: DisplayName,
			Bucket:   bucket,
			Path:     path,
			URL:      project.PublicURL(bucket, path),
		})
		hooks.ItemDone(i, item.Filename, path)
	}
	return results, nil
}

// Download fetches a single object by path.
func (c *Client) Download(ctx context.Context, key string, dest models.Destination) (models.DownloadedFile, error) {
	files, err := c.DownloadMany(ctx, []string{key}, dest, cloud.Hooks{})
	if err != nil {
		return models.DownloadedFile{}, err
	}
	return files[0], nil
}

// DownloadMany fetches objects through the authenticated endpoint, so
// private buckets work with any key whose policies allow SELECT.
func (c *Client) DownloadMany(ctx context.Context, keys []string, dest models.Destination, hooks cloud.Hooks) ([]models.DownloadedFile, error) {
	project, err := ParseCredentials(dest.Credential)
	if err != nil {
		return nil, err
	}
	bucket, err := ParseBucket(dest.Locator)
	if err != nil {
		return nil, err
	}
	rc := c.restClient(dest.Credential)

	files := make([]models.DownloadedFile, 0, len(keys))
	for i, name := range keys {
		path := cloud.JoinKey(dest.FolderPath, name)

		resp, err := rc.Stream(ctx, "GET", project.objectURL(bucket, path), project.headers(), nil)
		if err != nil {
			if isRLSBlocked(err) && jwtRole(project.Key) != "service_role" {
				return files, fmt.Errorf("Supabase Storage download blocked by RLS. Mark the bucket public or add a SELECT policy on storage.objects for bucket_id='%s': %w", bucket, err)
			}
			return files, fmt.Errorf("Supabase Storage download of %s failed: %w", name, err)
		}

		content, err := cloud.ReadAllMetered(resp.Body, resp.ContentLength, i, name, path, hooks)
		resp.Body.Close()
		if err != nil {
			return files, fmt.Errorf("Supabase Storage download of %s failed: %w", name, err)
		}

		files = append(files, models.DownloadedFile{Filename: name, Content: content})
		hooks.ItemDone(i, name, path)
	}
	return files, nil
}
