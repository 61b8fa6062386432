// Package prompt renders generation instructions from a video record and a
// destination's constraints. Building is a pure function of its inputs so it
// can be tested independently of validation.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"tube-herald/pkg/announce"
)

// maxDescriptionChars bounds how much of the video description is quoted in
// the prompt. Small models drown in long context.
const maxDescriptionChars = 200

// BannedWords are the clickbait terms the instructions forbid. The guardrail
// package enforces the same list after generation.
var BannedWords = []string{
	"insane", "epic", "crazy", "smash", "unmissable",
	"incredible", "amazing", "lit", "fire", "legendary",
	"mind-blowing", "jaw-dropping", "unbelievable", "viral",
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Build renders the full instruction block for one generation attempt.
// strict prepends an emphasis header used after a validation failure.
func Build(video announce.VideoRecord, dest announce.DestinationProfile, strict bool) string {
	var b strings.Builder

	if strict {
		b.WriteString("CRITICAL: A previous attempt violated the rules below. FOLLOW EVERY INSTRUCTION EXACTLY.\n\n")
	}

	fmt.Fprintf(&b, "You are a social media assistant that announces new %s video uploads.\n\n", video.Platform)
	fmt.Fprintf(&b, "TASK: Write a short, engaging post announcing this new video from %s.\n\n", video.Creator)
	fmt.Fprintf(&b, "VIDEO TITLE: %q\n", video.Title)
	if desc := cleanDescription(video.Description); desc != "" {
		fmt.Fprintf(&b, "VIDEO DESCRIPTION: %q\n", desc)
	}
	b.WriteString("\n")

	b.WriteString("CONTENT RULES (FOLLOW EXACTLY):\n")
	fmt.Fprintf(&b, "- Length: MUST be %d characters or less, including hashtags.\n", dest.MaxChars)
	b.WriteString("- Output ONLY the post text: no quotes, no labels, no \"Here's...\".\n")
	b.WriteString(styleInstruction(dest.Style))
	b.WriteString("- DO NOT include any URL or link; it is appended automatically.\n")
	b.WriteString("- DO NOT invent details not in the title or description: no giveaways, premieres, times, view counts, sponsors, or guests.\n")
	fmt.Fprintf(&b, "- DO NOT use these words: %s.\n", strings.Join(BannedWords, ", "))

	b.WriteString(hashtagInstruction(video, dest.Hashtags))

	fmt.Fprintf(&b, "\nNOW: Write the announcement for %q. Under %d characters. No URLs.\n\nPost:", video.Title, dest.MaxChars)

	return b.String()
}

func styleInstruction(style announce.Style) string {
	switch style {
	case announce.StyleFormal:
		return "- Tone: professional and informative, no slang.\n"
	case announce.StyleThorough:
		return "- Tone: descriptive; say what viewers will learn or see.\n"
	case announce.StyleTerse:
		return "- Tone: one short punchy sentence, nothing more.\n"
	default: // casual
		return "- Tone: conversational and natural, like a real person, not a corporate bot.\n"
	}
}

func hashtagInstruction(video announce.VideoRecord, policy announce.HashtagPolicy) string {
	if !policy.Allowed() {
		// Omitted entirely: mentioning hashtags at all invites them.
		return ""
	}

	var b strings.Builder
	b.WriteString("\nHASHTAG RULES (CRITICAL):\n")
	if policy.Min == policy.Max {
		fmt.Fprintf(&b, "- Include EXACTLY %d hashtags at the end. Not %d. Not %d. Exactly %d.\n",
			policy.Min, policy.Min-1, policy.Min+1, policy.Min)
	} else {
		fmt.Fprintf(&b, "- Include between %d and %d hashtags at the end.\n", policy.Min, policy.Max)
	}
	fmt.Fprintf(&b, "- Derive hashtags ONLY from words in the title: %q.\n", video.Title)
	if video.Creator != "" {
		fmt.Fprintf(&b, "- NEVER use the creator name %q or any part of it as a hashtag.\n", video.Creator)
	}
	b.WriteString("- No generic tags like #Video or #New. Short tags, space before each.\n")
	return b.String()
}

// cleanDescription truncates the description and strips any URLs so the
// model cannot echo them back.
func cleanDescription(desc string) string {
	desc = strings.TrimSpace(desc)
	if len(desc) > maxDescriptionChars {
		desc = desc[:maxDescriptionChars]
	}
	return strings.TrimSpace(urlPattern.ReplaceAllString(desc, ""))
}
