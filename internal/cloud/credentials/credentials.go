// Package credentials resolves and parses the auth material handed to
// storage providers: explicit values, environment fallbacks, and the
// shared grammar helpers (JSON documents, bare tokens, JWT shape), plus
// a cached OAuth2 refresh flow for the providers that need one.
package credentials

import (
	"encoding/json"
	"os"
	"strings"
)

// EnvAPIKey is the cross-provider credential fallback variable. A
// provider-specific override is EnvAPIKey + "_" + EnvSuffix(provider).
const EnvAPIKey = "MEDIASINK_API_KEY"

// Resolve picks the credential for a provider. An explicit non-blank
// value always wins; otherwise MEDIASINK_API_KEY_<PROVIDER> is consulted,
// then plain MEDIASINK_API_KEY. Returns "" when nothing is set.
func Resolve(provider, explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	if provider != "" {
		if v := os.Getenv(EnvAPIKey + "_" + EnvSuffix(provider)); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return os.Getenv(EnvAPIKey)
}

// EnvSuffix normalizes a provider name for env var lookup: uppercased,
// with spaces and hyphens folded to underscores. "AWS S3" -> "AWS_S3",
// "s3-compatible" -> "S3_COMPATIBLE".
func EnvSuffix(provider string) string {
	s := strings.ToUpper(provider)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// Fields is a credential parsed from a JSON object. Lookups tolerate the
// field-name aliases the providers accumulated over time.
type Fields map[string]any

// ParseJSON decodes a JSON-object credential. ok is false for anything
// that is not a JSON object (bare tokens, "A:B" pairs, empty strings),
// in which case callers fall back to their provider-specific grammar.
func ParseJSON(credential string) (Fields, bool) {
	trimmed := strings.TrimSpace(credential)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var f Fields
	if err := json.Unmarshal([]byte(trimmed), &f); err != nil {
		return nil, false
	}
	return f, true
}

// First returns the first non-empty string value among the named keys.
func (f Fields) First(keys ...string) string {
	for _, k := range keys {
		if v, ok := f[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

// LooksLikeJWT reports whether s has the header.payload.signature shape
// of a JWT. Used to catch Supabase credentials that carry a password or
// project ref where the service key belongs.
func LooksLikeJWT(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}
