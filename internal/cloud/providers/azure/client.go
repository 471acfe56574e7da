// Package azure stores blobs in Azure Blob Storage containers.
//
// Accepted destination forms, in precedence order:
//  1. Locator is a connection string (contains "DefaultEndpointsProtocol=");
//     the container is the first segment of the folder path, or a
//     "container" field in a JSON credential.
//  2. Credential is a connection string; the locator carries the
//     container (bare name or account URL form).
//  3. Locator is an account URL https://{account}.blob.core.windows.net/
//     {container}[/prefix] with an account key or SAS token credential.
package azure

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/mediasink/mediasink/internal/cloud"
	"github.com/mediasink/mediasink/internal/cloud/credentials"
	"github.com/mediasink/mediasink/internal/constants"
	httpx "github.com/mediasink/mediasink/internal/http"
	"github.com/mediasink/mediasink/internal/models"
)

// DisplayName is the human-facing provider name.
const DisplayName = "Azure Blob Storage"

const connStringMarker = "DefaultEndpointsProtocol="

// Target is a resolved Azure destination: auth material plus container
// and the fully folded blob prefix.
type Target struct {
	ConnectionString string
	AccountURL       string
	Credential       string // account key or SAS token (AccountURL form only)
	Container        string
	Prefix           string
}

// ResolveTarget maps a Destination onto a Target, folding FolderPath into
// the prefix. Mirrors the documented precedence order.
func ResolveTarget(dest models.Destination) (Target, error) {
	locator := strings.TrimSpace(dest.Locator)
	credential := strings.TrimSpace(dest.Credential)

	// Form 1: the locator itself is a connection string.
	if strings.Contains(locator, connStringMarker) {
		container, prefix := splitHead(dest.FolderPath)
		if f, ok := credentials.ParseJSON(credential); ok && container == "" {
			container = f.First("container")
			prefix = dest.FolderPath
		}
		if container == "" {
			return Target{}, fmt.Errorf("%s: a connection-string locator needs the container as the first folder path segment", DisplayName)
		}
		return Target{ConnectionString: locator, Container: container, Prefix: prefix}, nil
	}

	// Forms 2 and 3: container comes from the locator.
	var accountURL, container, basePrefix string
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		scheme, rest, _ := strings.Cut(locator, "://")
		host, path, _ := strings.Cut(rest, "/")
		accountURL = scheme + "://" + host
		container, basePrefix = splitHead(path)
	} else {
		container, basePrefix = splitHead(locator)
	}
	prefix := cloud.JoinKey(basePrefix, dest.FolderPath)

	if strings.HasPrefix(credential, connStringMarker) {
		if container == "" {
			return Target{}, fmt.Errorf("%s: destination locator must name a container", DisplayName)
		}
		return Target{ConnectionString: credential, Container: container, Prefix: prefix}, nil
	}

	if accountURL == "" || container == "" {
		return Target{}, fmt.Errorf("%s requires an account URL or connection string", DisplayName)
	}
	return Target{AccountURL: accountURL, Credential: credential, Container: container, Prefix: prefix}, nil
}

// splitHead cuts the first "/" separated segment off a path.
func splitHead(p string) (head, rest string) {
	p = strings.Trim(strings.TrimSpace(p), "/")
	head, rest, _ = strings.Cut(p, "/")
	return head, rest
}

// accountName extracts the storage account from its blob endpoint host.
func accountName(accountURL string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(accountURL, "https://"), "http://")
	name, _, _ := strings.Cut(host, ".")
	return name
}

// Client implements cloud.Uploader and cloud.Downloader for Azure Blob
// Storage. The service client is cached per auth identity and the
// container is created at most once per batch.
type Client struct {
	mu        sync.Mutex
	cached    *azblob.Client
	cachedKey string
}

// New returns an Azure client ready for any destination.
func New() *Client { return &Client{} }

func (c *Client) client(t Target) (*azblob.Client, error) {
	cacheKey := t.ConnectionString + "|" + t.AccountURL + "|" + t.Credential

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil && c.cachedKey == cacheKey {
		return c.cached, nil
	}

	// Reuse the pooled transport across client rebuilds.
	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: httpx.GetClient(),
		},
	}

	var client *azblob.Client
	var err error
	switch {
	case t.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(t.ConnectionString, opts)
	case t.Credential == "":
		client, err = azblob.NewClientWithNoCredential(t.AccountURL, opts)
	case strings.Contains(t.Credential, "sig="):
		// SAS token; attach as query string.
		sasURL := t.AccountURL + "?" + strings.TrimPrefix(t.Credential, "?")
		client, err = azblob.NewClientWithNoCredential(sasURL, opts)
	default:
		// Account key.
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(accountName(t.AccountURL), t.Credential)
		if err == nil {
			client, err = azblob.NewClientWithSharedKeyCredential(t.AccountURL, cred, opts)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	c.cached = client
	c.cachedKey = cacheKey
	return client, nil
}

func ensureContainer(ctx context.Context, client *azblob.Client, container string) error {
	_, err := client.CreateContainer(ctx, container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists, bloberror.ResourceAlreadyExists) {
		return fmt.Errorf("failed to create container %s: %w", container, err)
	}
	return nil
}

// Upload stores a single blob.
func (c *Client) Upload(ctx context.Context, data []byte, filename string, dest models.Destination) (models.UploadResult, error) {
	results, err := c.UploadMany(ctx, []models.FileItem{{Filename: filename, Content: data}}, dest, cloud.Hooks{})
	if err != nil {
		return models.UploadResult{}, err
	}
	return results[0], nil
}

// UploadMany stores items sequentially, overwriting existing blobs.
func (c *Client) UploadMany(ctx context.Context, items []models.FileItem, dest models.Destination, hooks cloud.Hooks) ([]models.UploadResult, error) {
	target, err := ResolveTarget(dest)
	if err != nil {
		return nil, err
	}
	client, err := c.client(target)
	if err != nil {
		return nil, err
	}
	if err := ensureContainer(ctx, client, target.Container); err != nil {
		return nil, err
	}
	serviceURL := strings.TrimSuffix(client.URL(), "/")

	results := make([]models.UploadResult, 0, len(items))
	for i, item := range items {
		blobName := cloud.JoinKey(target.Prefix, item.Filename)
		size := int64(len(item.Content))
		body := cloud.NewMeteredReader(bytes.NewReader(item.Content), size, i, item.Filename, blobName, hooks)

		contentType := cloud.ContentTypeFor(item.Filename)
		_, err := client.UploadStream(ctx, target.Container, blobName, body, &azblob.UploadStreamOptions{
			BlockSize: int64(constants.ChunkSize),
			HTTPHeaders: &blob.HTTPHeaders{
				BlobContentType: &contentType,
			},
		})
		if err != nil {
			return results, fmt.Errorf("Azure upload of %s failed: %w", item.Filename, err)
		}

		results = append(results, models.UploadResult{
			Provider: DisplayName,
			Bucket:   target.Container,
			Path:     blobName,
			URL:      fmt.Sprintf("%s/%s/%s", serviceURL, target.Container, blobName),
		})
		hooks.ItemDone(i, item.Filename, blobName)
	}
	return results, nil
}

// Download fetches a single blob by name.
func (c *Client) Download(ctx context.Context, key string, dest models.Destination) (models.DownloadedFile, error) {
	files, err := c.DownloadMany(ctx, []string{key}, dest, cloud.Hooks{})
	if err != nil {
		return models.DownloadedFile{}, err
	}
	return files[0], nil
}

// DownloadMany fetches blobs sequentially.
func (c *Client) DownloadMany(ctx context.Context, keys []string, dest models.Destination, hooks cloud.Hooks) ([]models.DownloadedFile, error) {
	target, err := ResolveTarget(dest)
	if err != nil {
		return nil, err
	}
	client, err := c.client(target)
	if err != nil {
		return nil, err
	}

	files := make([]models.DownloadedFile, 0, len(keys))
	for i, name := range keys {
		blobName := cloud.JoinKey(target.Prefix, name)

		resp, err := client.DownloadStream(ctx, target.Container, blobName, nil)
		if err != nil {
			return files, fmt.Errorf("Azure download of %s failed: %w", name, err)
		}

		var total int64
		if resp.ContentLength != nil {
			total = *resp.ContentLength
		}
		content, err := cloud.ReadAllMetered(resp.Body, total, i, name, blobName, hooks)
		resp.Body.Close()
		if err != nil {
			return files, fmt.Errorf("Azure download of %s failed: %w", name, err)
		}

		files = append(files, models.DownloadedFile{Filename: name, Content: content})
		hooks.ItemDone(i, name, blobName)
	}
	return files, nil
}
