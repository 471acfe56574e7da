package credentials

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/mediasink/mediasink/internal/constants"
	httpx "github.com/mediasink/mediasink/internal/http"
)

// TokenConfig describes an OAuth2 refresh-token credential for one of the
// consumer-cloud providers (Google Drive, OneDrive, Dropbox).
type TokenConfig struct {
	Provider     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	Endpoint     oauth2.Endpoint
	Scopes       []string
}

// fingerprint keys the cache. The refresh token is hashed, never stored
// as the key itself, so a leaked cache dump stays useless.
func (cfg TokenConfig) fingerprint() string {
	h := sha256.Sum256([]byte(cfg.Provider + "\x00" + cfg.ClientID + "\x00" + cfg.RefreshToken))
	return hex.EncodeToString(h[:12])
}

type cachedToken struct {
	token   *oauth2.Token
	fetched time.Time
}

// Manager caches refreshed access tokens across all concurrent operations
// so a batch of fifty uploads performs one token exchange, not fifty.
//
// It uses a double-checked locking pattern:
//   - Fast path: read lock to serve a still-valid token
//   - Slow path: write lock to refresh
//   - Second check: avoid redundant refreshes if another goroutine
//     already refreshed while we waited for the lock
type Manager struct {
	tokens map[string]cachedToken
	mu     sync.RWMutex
}

// Global singleton shared across all upload/download operations.
var (
	globalManager     *Manager
	globalManagerOnce sync.Once
)

// GetManager returns the process-wide token manager.
func GetManager() *Manager {
	globalManagerOnce.Do(func() {
		globalManager = &Manager{tokens: make(map[string]cachedToken)}
	})
	return globalManager
}

// AccessToken returns a usable access token for cfg, exchanging the
// refresh token at the provider's endpoint when the cached one is absent
// or inside the refresh safety margin.
func (m *Manager) AccessToken(ctx context.Context, cfg TokenConfig) (string, error) {
	key := cfg.fingerprint()

	// Fast path: serve a cached token that is still comfortably valid.
	m.mu.RLock()
	if entry, ok := m.tokens[key]; ok && tokenUsable(entry.token) {
		tok := entry.token.AccessToken
		m.mu.RUnlock()
		return tok, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check: another goroutine might have refreshed while we waited.
	if entry, ok := m.tokens[key]; ok && tokenUsable(entry.token) {
		return entry.token.AccessToken, nil
	}

	tok, err := m.exchange(ctx, cfg)
	if err != nil {
		return "", err
	}
	m.tokens[key] = cachedToken{token: tok, fetched: time.Now()}
	return tok.AccessToken, nil
}

func (m *Manager) exchange(ctx context.Context, cfg TokenConfig) (*oauth2.Token, error) {
	if cfg.RefreshToken == "" {
		return nil, fmt.Errorf("%s: credential has no refresh_token", cfg.Provider)
	}

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     cfg.Endpoint,
		Scopes:       cfg.Scopes,
	}

	// Route the exchange through the shared transport (proxy, pooling).
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpx.GetClient())

	tok, err := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing %s access token: %w", cfg.Provider, err)
	}
	if tok.Expiry.IsZero() {
		// Some endpoints omit expires_in; assume the common one-hour
		// lifetime, trimmed to the cache TTL.
		tok.Expiry = time.Now().Add(constants.TokenCacheDefaultTTL)
	}
	return tok, nil
}

func tokenUsable(tok *oauth2.Token) bool {
	return tok != nil && tok.AccessToken != "" &&
		time.Until(tok.Expiry) > constants.TokenRefreshMargin
}

// ForceRefresh drops the cached token for cfg so the next AccessToken
// call exchanges again. Used when a provider rejects a token that the
// cache still considered valid.
func (m *Manager) ForceRefresh(cfg TokenConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, cfg.fingerprint())
}

// Age returns the duration since the token for cfg was fetched, or 0
// when no token is cached. Useful in logs when diagnosing 401 loops.
func (m *Manager) Age(cfg TokenConfig) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.tokens[cfg.fingerprint()]
	if !ok {
		return 0
	}
	return time.Since(entry.fetched)
}

// Seed inserts a ready-made token for cfg. Providers use it when the
// credential itself carries a still-valid access_token, and tests use it
// to avoid the network.
func (m *Manager) Seed(cfg TokenConfig, accessToken string, expiry time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[cfg.fingerprint()] = cachedToken{
		token:   &oauth2.Token{AccessToken: accessToken, Expiry: expiry},
		fetched: time.Now(),
	}
}
