// Package guardrail validates model-generated announcement text before it is
// allowed anywhere near a social destination. Small models miscount hashtags,
// slip in clickbait vocabulary, leak URLs and invent premiere times; every
// check here exists because one of those actually happened.
package guardrail

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"tube-herald/pkg/announce"
	"tube-herald/prompt"
)

// Severity selects how much of the profanity list applies. Each tier
// includes the tiers below it.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

var (
	mildWords     = []string{"damn", "hell", "crap", "suck", "sucks", "piss", "pissed"}
	moderateWords = []string{"ass", "bastard", "bitch", "dick", "cock", "pussy", "slut", "whore"}
	severeWords   = []string{"fuck", "fucking", "shit", "shitty", "motherfucker", "asshole", "cunt"}
)

// hallucinationPatterns are fabrication signatures a model sometimes copies
// from training data even though nothing in the title supports them. Only the
// first hit is reported.
var hallucinationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)drops?\s+enabled`),
	regexp.MustCompile(`(?i)giveaway`),
	regexp.MustCompile(`(?i)tonight\s+at\s+\d`),
	regexp.MustCompile(`(?i)starting\s+at\s+\d`),
	regexp.MustCompile(`(?i)\d+\s*pm`),
	regexp.MustCompile(`(?i)\d+\s*am`),
	regexp.MustCompile(`(?i)vod\s+coming`),
	regexp.MustCompile(`(?i)vod\s+soon`),
	regexp.MustCompile(`(?i)next\s+video`),
	regexp.MustCompile(`(?i)\d+\s+views?`),
	regexp.MustCompile(`(?i)sponsored\s+`),
	regexp.MustCompile(`(?i)special\s+guest`),
	regexp.MustCompile(`(?i)premiere`),
}

var (
	urlLeakPattern        = regexp.MustCompile(`https?://`)
	urlTokenPattern       = regexp.MustCompile(`https?://\S+`)
	discordMentionPattern = regexp.MustCompile(`@\d+>`)
	blueskyHandlePattern  = regexp.MustCompile(`@[a-zA-Z0-9][a-zA-Z0-9-]*\.`)
	htmlEntityPattern     = regexp.MustCompile(`&[a-z]+;`)
	htmlOpenTagPattern    = regexp.MustCompile(`<\w+>`)
	htmlCloseTagPattern   = regexp.MustCompile(`</\w+>`)
)

// emojiRanges is a basic, not exhaustive, set of emoji code point ranges.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F300, 0x1F5FF}, // symbols and pictographs
	{0x1F680, 0x1F6FF}, // transport and map symbols
	{0x1F1E0, 0x1F1FF}, // regional indicators
	{0x2702, 0x27B0},   // dingbats
	{0x24C2, 0x1F251}, // enclosed characters
}

// Config toggles individual checks. The zero value disables everything;
// use DefaultConfig for the production posture.
type Config struct {
	Dedup             bool
	CacheSize         int
	OverlapThreshold  float64
	MaxEmoji          int
	Profanity         bool
	ProfanitySeverity Severity
	DestinationRules  bool
	QualityScoring    bool
	MinQualityScore   int
}

// DefaultConfig enables dedup and destination rules; profanity filtering and
// quality scoring stay off, matching how the daemon normally runs.
func DefaultConfig() Config {
	return Config{
		Dedup:             true,
		CacheSize:         20,
		OverlapThreshold:  0.8,
		MaxEmoji:          1,
		Profanity:         false,
		ProfanitySeverity: SeverityModerate,
		DestinationRules:  true,
		QualityScoring:    false,
		MinQualityScore:   6,
	}
}

// Outcome is the result of one validation pass. Issues holds every violated
// rule; Valid is true only when Issues is empty.
type Outcome struct {
	Valid  bool
	Issues []string
}

// Validator runs the full rule set against candidate text. Safe for
// concurrent use; the only shared state is the message cache.
type Validator struct {
	cfg    Config
	cache  *MessageCache
	logger *slog.Logger
	banned []*regexp.Regexp
}

// New builds a Validator. Cache parameters are checked up front when dedup
// is enabled.
func New(cfg Config, logger *slog.Logger) (*Validator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Validator{cfg: cfg, logger: logger}

	if cfg.Dedup {
		cache, err := NewMessageCache(cfg.CacheSize, cfg.OverlapThreshold)
		if err != nil {
			return nil, err
		}
		v.cache = cache
	}

	for _, word := range prompt.BannedWords {
		v.banned = append(v.banned, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	return v, nil
}

// Validate runs every enabled check and accumulates all violations rather
// than stopping at the first, so one pass surfaces every problem. It never
// mutates the dedup cache; call Remember once text is finalized.
func (v *Validator) Validate(text string, policy announce.HashtagPolicy, title, creator, destination string) Outcome {
	var issues []string

	tags := ExtractHashtags(text)
	if !policy.Satisfied(len(tags)) {
		issues = append(issues, fmt.Sprintf("wrong hashtag count: %d (expected %s)", len(tags), describePolicy(policy)))
	}

	if found := v.findBannedWords(text); len(found) > 0 {
		issues = append(issues, "contains forbidden words: "+strings.Join(found, ", "))
	}

	if urlLeakPattern.MatchString(text) {
		issues = append(issues, "contains a URL, links are appended after validation")
	}

	for _, pattern := range hallucinationPatterns {
		if pattern.MatchString(text) {
			issues = append(issues, "possible hallucination: "+pattern.String())
			break
		}
	}

	if count := CountEmoji(text); count > v.cfg.MaxEmoji {
		issues = append(issues, fmt.Sprintf("too many emoji: %d (max %d)", count, v.cfg.MaxEmoji))
	}

	if v.cfg.Profanity {
		if found := findProfanity(text, v.cfg.ProfanitySeverity); len(found) > 0 {
			issues = append(issues, "contains profanity: "+strings.Join(found, ", "))
		}
	}

	if v.cfg.Dedup && v.cache.IsDuplicate(text) {
		issues = append(issues, "too similar to a recent announcement")
	}

	if v.cfg.QualityScoring {
		score, reasons := ScoreQuality(text, title)
		if score < v.cfg.MinQualityScore {
			issues = append(issues, fmt.Sprintf("low quality score: %d/10", score))
			issues = append(issues, reasons...)
		}
	}

	if v.cfg.DestinationRules && destination != "" {
		issues = append(issues, destinationIssues(text, destination)...)
	}

	if len(issues) > 0 {
		v.logger.Debug("validation found issues",
			"destination", destination,
			"creator", creator,
			"issues", issues)
	}
	return Outcome{Valid: len(issues) == 0, Issues: issues}
}

// Remember records finalized text in the dedup cache. No-op when dedup is
// disabled.
func (v *Validator) Remember(text string) {
	if v.cfg.Dedup {
		v.cache.Add(text)
	}
}

func (v *Validator) findBannedWords(text string) []string {
	var found []string
	for i, pattern := range v.banned {
		if pattern.MatchString(text) {
			found = append(found, prompt.BannedWords[i])
		}
	}
	return found
}

// CountEmoji counts runes falling in the known emoji ranges.
func CountEmoji(text string) int {
	count := 0
	for _, r := range text {
		for _, rng := range emojiRanges {
			if r >= rng[0] && r <= rng[1] {
				count++
				break
			}
		}
	}
	return count
}

func findProfanity(text string, severity Severity) []string {
	words := mildWords
	switch severity {
	case SeverityModerate:
		words = append(append([]string{}, mildWords...), moderateWords...)
	case SeveritySevere:
		words = append(append(append([]string{}, mildWords...), moderateWords...), severeWords...)
	}

	lower := strings.ToLower(text)
	var found []string
	for _, word := range words {
		if regexp.MustCompile(`\b` + word + `\b`).MatchString(lower) {
			found = append(found, word)
		}
	}
	return found
}

// destinationIssues applies per-destination structural rules. Chat-style
// destinations get mention and markup checks; text-first ones get plain-text
// expectations.
func destinationIssues(text, destination string) []string {
	var issues []string

	switch strings.ToLower(destination) {
	case "discord":
		if strings.Contains(text, "@everyone") || strings.Contains(text, "@here") {
			issues = append(issues, "contains a mass mention")
		}
		if discordMentionPattern.MatchString(text) {
			issues = append(issues, "malformed mention")
		}
		if strings.Count(text, "**")%2 != 0 || strings.Count(text, "__")%2 != 0 {
			issues = append(issues, "unmatched markdown delimiters")
		}
	case "bluesky":
		if urlTokenPattern.MatchString(text) {
			issues = append(issues, "URL in content breaks link facets")
		}
		if strings.Contains(text, "@") && !blueskyHandlePattern.MatchString(text) {
			issues = append(issues, "malformed handle, expected @name.domain")
		}
	case "mastodon":
		if htmlEntityPattern.MatchString(text) {
			issues = append(issues, "raw HTML entities in plain text")
		}
	case "matrix":
		if strings.ContainsAny(text, "<>") {
			open := len(htmlOpenTagPattern.FindAllString(text, -1))
			closed := len(htmlCloseTagPattern.FindAllString(text, -1))
			if open != closed {
				issues = append(issues, "unbalanced HTML tags")
			}
		}
	}
	return issues
}

func describePolicy(policy announce.HashtagPolicy) string {
	switch {
	case !policy.Allowed():
		return "none"
	case policy.Min == policy.Max:
		return fmt.Sprintf("exactly %d", policy.Min)
	default:
		return fmt.Sprintf("%d to %d", policy.Min, policy.Max)
	}
}
