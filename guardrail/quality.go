package guardrail

import (
	"fmt"
	"regexp"
	"strings"
)

// genericPhrases are filler lines that make an announcement read like every
// other announcement. More than two of them costs quality points.
var genericPhrases = []string{
	"check it out",
	"check this out",
	"watch now",
	"click the link",
	"new video",
	"just uploaded",
	"latest video",
}

var personalityPattern = regexp.MustCompile(`[!?]|[\x{1F600}-\x{1F64F}]`)

// ScoreQuality grades a candidate announcement from 1 to 10 against the
// video title. Deductions cover generic-phrase density, word count outside
// a sane band, heavy word repetition, zero overlap with the title, and a
// total absence of personality markers. Returns the score and the reasons
// for each deduction.
func ScoreQuality(text, title string) (int, []string) {
	score := 10
	var issues []string

	lower := strings.ToLower(text)
	genericCount := 0
	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			genericCount++
		}
	}
	if genericCount > 2 {
		score -= 2
		issues = append(issues, fmt.Sprintf("too many generic phrases (%d)", genericCount))
	}

	body := strings.TrimSpace(hashtagTokenPattern.ReplaceAllString(text, ""))
	words := strings.Fields(body)
	switch {
	case len(words) < 4:
		score -= 3
		issues = append(issues, "too short")
	case len(words) > 30:
		score -= 2
		issues = append(issues, "too long")
	}

	if len(words) > 0 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[strings.ToLower(w)] = struct{}{}
		}
		if float64(len(unique))/float64(len(words)) < 0.7 {
			score -= 2
			issues = append(issues, "too many repeated words")
		}
	}

	titleWords := tokenSet(strings.ToLower(title))
	messageWords := tokenSet(lower)
	if overlapCount(titleWords, messageWords) == 0 {
		score -= 3
		issues = append(issues, "does not reference the video title")
	}

	if !personalityPattern.MatchString(text) {
		score--
		issues = append(issues, "lacks personality markers")
	}

	if score < 1 {
		score = 1
	}
	return score, issues
}

func overlapCount(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
