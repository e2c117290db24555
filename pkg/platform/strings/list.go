// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// SplitList splits a comma separated value into trimmed, non-empty,
// de-duplicated elements, preserving first-seen order. Used for list-valued
// environment variables such as ALLOWED_ORIGINS.
//
// Example:
//
//	SplitList(" https://a.com, ,https://b.com,https://a.com ")
//	// Returns: []string{"https://a.com", "https://b.com"}
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(value, ","))
}

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
