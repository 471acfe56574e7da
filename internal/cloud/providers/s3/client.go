// Package s3 stores objects in Amazon S3 buckets.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mediasink/mediasink/internal/cloud"
	httpx "github.com/mediasink/mediasink/internal/http"
	"github.com/mediasink/mediasink/internal/models"
)

// DisplayName is the human-facing provider name.
const DisplayName = "AWS S3"

// DefaultRegion applies when the credential names no region.
const DefaultRegion = "us-east-1"

// Client implements cloud.Uploader and cloud.Downloader for Amazon S3.
// The SDK client is cached and rebuilt only when the credential changes,
// so a batch performs one config load, not one per item.
type Client struct {
	mu          sync.Mutex
	cached      *awss3.Client
	cachedCreds Credentials
}

// New returns an S3 client ready for any destination.
func New() *Client { return &Client{} }

func (c *Client) client(ctx context.Context, creds Credentials) (*awss3.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && creds == c.cachedCreds {
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

	c.cached = awss3.NewFromConfig(cfg)
	c.cachedCreds = creds
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

// UploadMany stores items sequentially under the bucket and prefix named
// by the destination.
func (c *Client) UploadMany(ctx context.Context, items []models.FileItem, dest models.Destination, hooks cloud.Hooks) ([]models.UploadResult, error) {
	bucket, basePrefix, err := ParseLocator(dest.Locator)
	if err != nil {
		return nil, err
	}
	client, err := c.client(ctx, ParseCredentials(dest.Credential))
	if err != nil {
		return nil, err
	}

	results := make([]models.UploadResult, 0, len(items))
	for i, item := range items {
		key := cloud.JoinKey(basePrefix, dest.FolderPath, item.Filename)
		size := int64(len(item.Content))
		body := cloud.NewMeteredReader(bytes.NewReader(item.Content), size, i, item.Filename, key, hooks)

		timer := cloud.StartTimer(nil, "s3 put "+item.Filename)
		_, err := client.PutObject(ctx, &awss3.PutObjectInput{
			Bucket:        aws.String(bucket),
			Key:           aws.String(key),
			Body:          body,
			ContentLength: aws.Int64(size),
			ContentType:   aws.String(cloud.ContentTypeFor(item.Filename)),
		})
		timer.StopWithThroughput(size)
		if err != nil {
			return results, fmt.Errorf("S3 upload of %s failed: %w", item.Filename, err)
		}

		results = append(results, models.UploadResult{
			Provider: DisplayName,
			Bucket:   bucket,
			Path:     key,
			URL:      fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key),
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

// DownloadMany fetches objects sequentially. Keys resolve under the
// destination's prefix and folder path, mirroring how uploads write them.
func (c *Client) DownloadMany(ctx context.Context, keys []string, dest models.Destination, hooks cloud.Hooks) ([]models.DownloadedFile, error) {
	bucket, basePrefix, err := ParseLocator(dest.Locator)
	if err != nil {
		return nil, err
	}
	client, err := c.client(ctx, ParseCredentials(dest.Credential))
	if err != nil {
		return nil, err
	}

	files := make([]models.DownloadedFile, 0, len(keys))
	for i, name := range keys {
		key := cloud.JoinKey(basePrefix, dest.FolderPath, name)

		obj, err := client.GetObject(ctx, &awss3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return files, fmt.Errorf("S3 download of %s failed: %w", name, err)
		}

		total := aws.ToInt64(obj.ContentLength)
		content, err := cloud.ReadAllMetered(obj.Body, total, i, name, key, hooks)
		obj.Body.Close()
		if err != nil {
			return files, fmt.Errorf("S3 download of %s failed: %w", name, err)
		}

		files = append(files, models.DownloadedFile{Filename: name, Content: content})
		hooks.ItemDone(i, name, key)
	}
	return files, nil
}
