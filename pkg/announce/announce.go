// Package announce contains the core domain types for the tube-herald announcement service.
package announce

import "time"

// VideoRecord is an immutable description of a newly detected upload.
// Produced by a poller; read-only to the generation pipeline.
type VideoRecord struct {
	Title       string
	Description string
	URL         string // Canonical watch URL, appended to the finished announcement
	Platform    string // Source platform name (YouTube, TikTok, ...)
	Creator     string // Channel/creator name, optional
	PublishedAt time.Time
}

// Style selects the register the generated announcement should use.
type Style string

const (
	StyleFormal   Style = "formal"
	StyleCasual   Style = "casual"
	StyleThorough Style = "thorough"
	StyleTerse    Style = "terse"
)

// HashtagPolicy states how many hashtags a destination expects.
// Min == Max expresses an exact count. Max == 0 disallows hashtags entirely.
type HashtagPolicy struct {
	Min int
	Max int
}

// Exact returns a policy requiring exactly n hashtags.
func Exact(n int) HashtagPolicy { return HashtagPolicy{Min: n, Max: n} }

// Range returns a policy accepting between lo and hi hashtags inclusive.
func Range(lo, hi int) HashtagPolicy { return HashtagPolicy{Min: lo, Max: hi} }

// None returns a policy that disallows hashtags.
func None() HashtagPolicy { return HashtagPolicy{} }

// Allowed reports whether the destination permits hashtags at all.
func (p HashtagPolicy) Allowed() bool { return p.Max > 0 }

// Satisfied reports whether a hashtag count falls within the policy.
func (p HashtagPolicy) Satisfied(count int) bool {
	if !p.Allowed() {
		return count == 0
	}
	return count >= p.Min && count <= p.Max
}

// DestinationProfile holds the per-target constraints the pipeline generates
// against. MaxChars is the budget for the generated body only; room for the
// trailing link is reserved by whoever builds the profile.
type DestinationProfile struct {
	Name     string // e.g. "discord", "mastodon", "bluesky", "matrix"
	MaxChars int
	Hashtags HashtagPolicy
	Style    Style
}

// DefaultProfiles returns the built-in destination constraints. Character
// budgets are conservative: each leaves room for the appended link and the
// blank-line separator in front of it.
func DefaultProfiles() map[string]DestinationProfile {
	return map[string]DestinationProfile{
		"bluesky":  {Name: "bluesky", MaxChars: 250, Hashtags: Exact(3), Style: StyleCasual},
		"mastodon": {Name: "mastodon", MaxChars: 400, Hashtags: Exact(3), Style: StyleThorough},
		"discord":  {Name: "discord", MaxChars: 300, Hashtags: None(), Style: StyleCasual},
		"matrix":   {Name: "matrix", MaxChars: 350, Hashtags: None(), Style: StyleFormal},
	}
}
