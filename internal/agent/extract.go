package agent

import "strings"

// extractJSONArray pulls the first-to-last bracketed span out of a model
// answer. Models wrap JSON in prose and code fences; the outermost
// brackets are the payload.
func extractJSONArray(s string) (string, bool) {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// extractJSONObject is extractJSONArray for a braced object.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
