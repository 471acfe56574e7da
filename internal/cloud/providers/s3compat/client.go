// Package s3compat stores objects in S3-compatible services (MinIO,
// Cloudflare R2, Wasabi, DigitalOcean Spaces) addressed by an explicit
// endpoint URL. Credentials follow the same grammar as AWS S3; the
// locator must carry the endpoint: https://endpoint/bucket[/prefix].
package s3compat

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mediasink/mediasink/internal/cloud"
	"github.com/mediasink/mediasink/internal/cloud/providers/s3"
	httpx "github.com/mediasink/mediasink/internal/http"
	"github.com/mediasink/mediasink/internal/models"
)

// DisplayName is the human-facing provider name.
const DisplayName = "S3-Compatible"

// Endpoint is a parsed locator: the service base URL plus the bucket and
// base prefix encoded in its path.
type Endpoint struct {
	BaseURL    string
	Bucket     string
	BasePrefix string
}

// ParseLocator requires a full endpoint URL with the bucket as the first
// path segment: https://endpoint/bucket[/prefix].
func ParseLocator(locator string) (Endpoint, error) {
	trimmed := strings.TrimSpace(locator)
	u, err := url.Parse(trimmed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Endpoint{}, fmt.Errorf("%s requires an http(s) endpoint URL, e.g. https://endpoint/bucket", DisplayName)
	}

	bucket, basePrefix, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	if bucket == "" {
		return Endpoint{}, fmt.Errorf("%s locator is missing the bucket: https://endpoint/bucket[/prefix]", DisplayName)
	}

	return Endpoint{
		BaseURL:    u.Scheme + "://" + u.Host,
		Bucket:     bucket,
		BasePrefix: basePrefix,
	}, nil
}

// Client implements cloud.Uploader and cloud.Downloader against a
// path-style S3 endpoint.
type Client struct {
	mu        sync.Mutex
	cached    *awss3.Client
	cachedKey string // endpoint + credential identity
}

// New returns a client ready for any destination.
func New() *Client { return &Client{} }

func (c *Client) client(ctx context.Context, endpoint string, creds s3.Credentials) (*awss3.Client, error) {
	cacheKey := endpoint + "|" + creds.AccessKey + "|" + creds.Region

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil && c.cachedKey == cacheKey {
		return c.cached, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(creds.RegionOrDefault()),
		awsconfig.WithHTTPClient(httpx.GetClient()),
	}
	if creds.AccessKey != "" && creds.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, creds.SessionToken)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing: most compatible services do not resolve
	// virtual-host bucket subdomains.
	c.cached = awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	c.cachedKey = cacheKey
	return c.cached, nil
}

// Upload stores a single object.
func (c *Client) Upload(ctx context.Context, data []byte, filename string, dest models.Destination) (models.UploadResult, error) {
	results, err := c.UploadMany(ctx, []models.FileItem{{Filename: filename, Content: data}}, dest, cloud.Hooks{})
	if err != nil {
		return models.UploadResult{}, err
	}
	return results[0], nil
}

// UploadMany stores items sequentially.
func (c *Client) UploadMany(ctx context.Context, items []models.FileItem, dest models.Destination, hooks cloud.Hooks) ([]models.UploadResult, error) {
	ep, err := ParseLocator(dest.Locator)
	if err != nil {
		return nil, err
	}
	client, err := c.client(ctx, ep.BaseURL, s3.ParseCredentials(dest.Credential))
	if err != nil {
		return nil, err
	}

	results := make([]models.UploadResult, 0, len(items))
	for i, item := range items {
		key := cloud.JoinKey(ep.BasePrefix, dest.FolderPath, item.Filename)
		size := int64(len(item.Content))
		body := cloud.NewMeteredReader(bytes.NewReader(item.Content), size, i, item.Filename, key, hooks)

		_, err := client.PutObject(ctx, &awss3.PutObjectInput{
			Bucket:        aws.String(ep.Bucket),
			Key:           aws.String(key),
			Body:          body,
			ContentLength: aws.Int64(size),
			ContentType:   aws.String(cloud.ContentTypeFor(item.Filename)),
		})
		if err != nil {
			return results, fmt.Errorf("%s upload of %s failed: %w", DisplayName, item.Filename, err)
		}

		results = append(results, models.UploadResult{
			Provider: DisplayName,
			Bucket:   ep.Bucket,
			Path:     key,
			URL:      fmt.Sprintf("%s/%s/%s", ep.BaseURL, ep.Bucket, key),
		})
		hooks.ItemDone(i, item.Filename, key)
	}
	return results, nil
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
	ep, err := ParseLocator(dest.Locator)
	if err != nil {
		return nil, err
	}
	client, err := c.client(ctx, ep.BaseURL, s3.ParseCredentials(dest.Credential))
	if err != nil {
		return nil, err
	}

	files := make([]models.DownloadedFile, 0, len(keys))
	for i, name := range keys {
		key := cloud.JoinKey(ep.BasePrefix, dest.FolderPath, name)

		obj, err := client.GetObject(ctx, &awss3.GetObjectInput{
			Bucket: aws.String(ep.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return files, fmt.Errorf("%s download of %s failed: %w", DisplayName, name, err)
		}

		content, err := cloud.ReadAllMetered(obj.Body, aws.ToInt64(obj.ContentLength), i, name, key, hooks)
		obj.Body.Close()
		if err != nil {
			return files, fmt.Errorf("%s download of %s failed: %w", DisplayName, name, err)
		}

		files = append(files, models.DownloadedFile{Filename: name, Content: content})
		hooks.ItemDone(i, name, key)
	}
	return files, nil
}
