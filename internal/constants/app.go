package constants

import (
	"time"
)

// Transfer chunking
const (
	// ChunkSize - granularity for byte-progress reporting during uploads
	// and downloads (8 MB). Progress callbacks fire once per chunk, which
	// keeps UI updates cheap without starving long transfers of feedback.
	ChunkSize = 8 * 1024 * 1024
)

// Retry configuration
const (
	// MaxRetries - maximum number of retries for transient errors
	MaxRetries = 10

	// RetryInitialDelay - initial delay before first retry (200ms)
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay - maximum delay between retries (15s)
	// Exponential backoff with jitter caps at this value
	RetryMaxDelay = 15 * time.Second
)

// REST client configuration (provider HTTP APIs)
const (
	// RESTRetryMax - retryablehttp retry attempts for provider REST calls
	RESTRetryMax = 10

	// RESTRetryWaitMin - minimum wait between REST retries
	RESTRetryWaitMin = 1 * time.Second

	// RESTRetryWaitMax - maximum wait between REST retries
	RESTRetryWaitMax = 30 * time.Second
)

// OAuth token handling
const (
	// TokenRefreshMargin - refresh cached access tokens this long before
	// their reported expiry. Vendors commonly issue 1h tokens; the margin
	// absorbs clock skew and slow uploads started near the boundary.
	TokenRefreshMargin = 2 * time.Minute

	// TokenCacheDefaultTTL - lifetime assumed for access tokens whose
	// refresh response carried no expires_in field
	TokenCacheDefaultTTL = 50 * time.Minute
)

// Event system
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios (5000)
	EventBusMaxBuffer = 5000
)

// Disk space safety margin
const (
	// DiskSpaceBufferPercent - additional space to require beyond file size (15%)
	// Accounts for temporary encode outputs and metadata rewrites.
	DiskSpaceBufferPercent = 0.15
)

// Filenames
const (
	// MaxFilenameLength - longest sanitized filename accepted (bytes)
	MaxFilenameLength = 255
)

// FTP
const (
	// DefaultFTPPort - used when the locator omits a port
	DefaultFTPPort = 21

	// FTPDialTimeout - connect timeout for FTP control connections
	FTPDialTimeout = 30 * time.Second
)

// HTTP client timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPDownloadUserAgent - identifies passthrough media downloads
	HTTPDownloadUserAgent = "mediasink/1.0"
)

// Progress UI
const (
	// ProgressRefreshInterval - refresh rate for multi-bar batch UI
	ProgressRefreshInterval = 300 * time.Millisecond

	// ProgressBarWidth - render width for single progress bars
	ProgressBarWidth = 50
)
