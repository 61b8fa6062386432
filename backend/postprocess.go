package backend

import "strings"

// cleanResponse normalizes raw provider output. Some backends echo a quoted
// string with literal \n \t \r sequences instead of real whitespace; when
// that symptom is present we strip one layer of wrapping quotes and decode
// the sequences.
func cleanResponse(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.Contains(text, `\n`) {
		text = stripWrappingQuotes(text)
		text = strings.ReplaceAll(text, `\n`, "\n")
		text = strings.ReplaceAll(text, `\t`, "\t")
		text = strings.ReplaceAll(text, `\r`, "\r")
		text = strings.TrimSpace(text)
	}

	return text
}

// stripWrappingQuotes removes a single layer of matching quotes around the
// whole string.
func stripWrappingQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
