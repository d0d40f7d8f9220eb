// Package util provides common text cleanup helpers used across the service.
package util

import "strings"

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// StripCodeFences removes a surrounding markdown code fence from model
// output. Handles ```json ... ``` and bare ``` ... ``` blocks; input
// without fences is returned unchanged.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		// Drop a language hint like "json" on the fence line.
		first := strings.TrimSpace(trimmed[:i])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}") {
			trimmed = trimmed[i+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// FirstNonEmpty returns the first non-empty string in vals.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
