package ratelimit

import (
	"crypto/sha256"
	"fmt"
	"sync"
)

// rateConfig holds the token bucket parameters for one provider.
type rateConfig struct {
	ratePerSec float64
	burst      float64
}

// providerRates maps canonical provider IDs to their bucket parameters.
// Providers not listed use the default (SDK-based providers never route
// through this registry at all).
var providerRates = map[string]rateConfig{
	"gdrive":      {DriveRatePerSec, DriveBurst},
	"onedrive":    {GraphRatePerSec, GraphBurst},
	"b2":          {B2RatePerSec, B2Burst},
	"dropbox":     {DropboxRatePerSec, DropboxBurst},
	"supabase":    {SupabaseRatePerSec, SupabaseBurst},
	"uploadthing": {UploadThingRatePerSec, UploadThingBurst},
}

// Registry manages shared rate limiters keyed by provider and account.
// Calls against the same provider with the same credential share one bucket,
// since they consume the same server-side quota; different credentials get
// independent buckets.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*RateLimiter
}

// NewRegistry creates an empty limiter registry.
func NewRegistry() *Registry {
	return &Registry{
		limiters: make(map[string]*RateLimiter),
	}
}

var (
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
)

// GlobalRegistry returns the process-level singleton Registry.
// Thread-safe; initialized exactly once.
func GlobalRegistry() *Registry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// ResetGlobalRegistry replaces the global registry with a fresh instance.
// Only for use in tests.
func ResetGlobalRegistry() {
	globalRegistryOnce = sync.Once{}
	globalRegistry = nil
}

// Get returns the shared rate limiter for the given provider and credential.
// If no limiter exists for this combination, one is created with the
// provider's configured rate.
func (r *Registry) Get(provider, credential string) *RateLimiter {
	key := makeKey(provider, credential)

	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, ok := r.limiters[key]; ok {
		return limiter
	}

	cfg, ok := providerRates[provider]
	if !ok {
		cfg = rateConfig{DefaultRatePerSec, DefaultBurst}
	}

	limiter := NewRateLimiter(cfg.ratePerSec, cfg.burst)
	r.limiters[key] = limiter
	return limiter
}

// makeKey builds a map key from {provider, hash(credential)}. The credential
// is hashed so it is never held in memory as a map key.
func makeKey(provider, credential string) string {
	h := sha256.Sum256([]byte(credential))
	return fmt.Sprintf("%s|%x", provider, h[:8])
}
