package guardrail

import (
	"regexp"
	"strings"
)

// hashtagPattern matches a # followed by a letter and any word characters.
// A bare "#" or "#123" is not a hashtag.
var hashtagPattern = regexp.MustCompile(`#[a-zA-Z]\w*`)

// ExtractHashtags returns every hashtag in text, in order, without the
// leading #.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllString(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.TrimPrefix(m, "#"))
	}
	return tags
}

// removeHashtag deletes every occurrence of #tag from text, case-insensitively,
// and collapses the whitespace left behind.
func removeHashtag(text, tag string) string {
	pattern := regexp.MustCompile(`(?i)#` + regexp.QuoteMeta(tag) + `\b`)
	cleaned := pattern.ReplaceAllString(text, "")
	cleaned = regexp.MustCompile(`[ \t]{2,}`).ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
