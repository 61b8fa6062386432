package guardrail

import "strings"

// SafeTrim shortens text to at most limit characters, cutting at the last
// word boundary so hashtags and words are never split mid-token. When no
// boundary exists before the limit it falls back to a hard cut. Limits are
// counted in runes, not bytes, so emoji do not skew the budget.
func SafeTrim(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= 0 {
		return ""
	}

	head := string(runes[:limit])
	trimmed := head
	if idx := strings.LastIndex(head, " "); idx > 0 {
		trimmed = head[:idx]
	}
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return head
	}
	return trimmed
}
