// Package strings provides string utility functions.
package strings

import "strings"

// Pluralize returns singular or plural form based on count.
// Example: Pluralize("file", 1) returns "file", Pluralize("file", 2) returns "files"
func Pluralize(word string, count int64) string {
	if count == 1 {
		return word
	}
	return word + "s"
}

// SplitNonEmptyLines splits multiline input into trimmed, non-empty lines.
// Used for the one-path-per-line inputs on load commands. Order is kept and
// duplicates are not removed.
func SplitNonEmptyLines(input string) []string {
	var result []string
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		result = append(result, line)
	}
	return result
}
