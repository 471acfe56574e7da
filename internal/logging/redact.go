package logging

import (
	"net/url"
	"strings"
)

// sensitiveKeys are parameter names whose values must never reach logs.
// Matching is case-insensitive and substring-based so that provider-prefixed
// variants (aws_access_key_id, dropbox_refresh_token) are caught too.
var sensitiveKeys = []string{
	"api_key",
	"access_key",
	"secret_key",
	"client_secret",
	"authorization",
	"token",
	"access_token",
	"refresh_token",
}

// IsSensitiveKey reports whether a parameter name refers to credential
// material.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// Redact returns the value unchanged for ordinary keys and a placeholder
// for credential keys. Empty values stay empty so log lines still show
// which fields were unset.
func Redact(key, value string) string {
	if value == "" {
		return value
	}
	if IsSensitiveKey(key) {
		return "[redacted]"
	}
	return value
}

// RedactParams returns a copy of params safe for logging.
func RedactParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = Redact(k, v)
	}
	return out
}

// RedactURL masks the values of sensitive query parameters in rawURL.
// Provider APIs put short-lived secrets in query strings (B2 download
// authorizations, signed Supabase URLs); those must not reach logs.
// Unparseable input comes back unchanged.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return rawURL
	}

	q := u.Query()
	hit := false
	for key, values := range q {
		if !IsSensitiveKey(key) {
			continue
		}
		for i := range values {
			values[i] = Redact(key, values[i])
		}
		hit = true
	}
	if !hit {
		return rawURL
	}

	u.RawQuery = q.Encode()
	return u.String()
}
