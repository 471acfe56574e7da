// Package ratelimit provides rate limiting for provider REST calls using a
// token bucket algorithm.
package ratelimit

import "time"

// Provider API rate targets
//
// The REST-based providers (B2, Dropbox, Drive, OneDrive, Supabase,
// UploadThing) throttle per key or per app. The SDK-based providers (S3,
// GCS, Azure) ship their own adaptive retry and are not routed through this
// package. Targets below sit well under each vendor's published or observed
// caps; a 429 from the vendor additionally drains the local bucket.
const (
	// DefaultRatePerSec is the sustained request rate for providers without
	// a dedicated entry.
	DefaultRatePerSec = 4.0

	// DefaultBurst allows ~5 seconds of rapid calls before the sustained
	// rate applies (20 tokens / 4 per second).
	DefaultBurst = 20

	// DriveRatePerSec targets a fraction of the Drive API per-user quota
	// (12000 queries per 60 seconds).
	DriveRatePerSec = 10.0
	DriveBurst      = 50

	// GraphRatePerSec covers OneDrive; Microsoft Graph throttles
	// dynamically, so the target stays conservative.
	GraphRatePerSec = 8.0
	GraphBurst      = 40

	// B2RatePerSec paces the b2_* call sequence (authorize, list buckets,
	// get upload URL, upload) so multi-file batches do not hammer the API.
	B2RatePerSec = 8.0
	B2Burst      = 40

	// DropboxRatePerSec stays under Dropbox's per-app limits, which begin
	// returning 429 with Retry-After under sustained load.
	DropboxRatePerSec = 4.0
	DropboxBurst      = 20

	// SupabaseRatePerSec fits the storage API limits of the lower tiers.
	SupabaseRatePerSec = 10.0
	SupabaseBurst      = 50

	// UploadThingRatePerSec matches the documented presign request limits.
	UploadThingRatePerSec = 4.0
	UploadThingBurst      = 20
)

// Visibility thresholds for utilization-based rate limit notifications.
//
// Hysteresis prevents flickering between warn and silent states:
//   - Warning activates when utilization >= UtilizationWarnThreshold (60%)
//   - Warning deactivates only when utilization drops below UtilizationSuppressThreshold (50%)
const (
	// UtilizationWarnThreshold is the utilization level above which warnings are emitted.
	UtilizationWarnThreshold = 0.60

	// UtilizationSuppressThreshold is the utilization level below which warnings are suppressed.
	// Must be less than UtilizationWarnThreshold to provide hysteresis.
	UtilizationSuppressThreshold = 0.50

	// NotifyMinInterval is the minimum time between consecutive notifications.
	// Prevents log spam during sustained high-utilization periods.
	NotifyMinInterval = 10 * time.Second
)
