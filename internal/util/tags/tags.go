// Package tags provides normalization for user-supplied metadata tags and
// key=value pairs embedded into saved files.
package tags

import "strings"

// NormalizeTags normalizes a list of tags by trimming whitespace,
// removing empty strings, and deduplicating.
func NormalizeTags(raw []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !seen[tag] {
			seen[tag] = true
			result = append(result, tag)
		}
	}
	return result
}

// ParseCommaSeparated splits a comma-separated string into normalized tags.
func ParseCommaSeparated(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return NormalizeTags(parts)
}

// ParseKeyValue splits a "key=value" pair on the first '='. The key is
// trimmed and must be non-empty; the value keeps inner whitespace but is
// trimmed at the edges. Values may contain '='.
func ParseKeyValue(pair string) (string, string, bool) {
	idx := strings.Index(pair, "=")
	if idx < 0 {
		return "", "", false
	}
	key := strings.TrimSpace(pair[:idx])
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(pair[idx+1:]), true
}

// ParsePairs converts a list of "key=value" strings into a map. Malformed
// entries are skipped; a repeated key keeps the last value.
func ParsePairs(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	result := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := ParseKeyValue(pair)
		if !ok {
			continue
		}
		result[key] = value
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
