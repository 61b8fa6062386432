package guardrail

import (
	"strings"
	"unicode"
)

// TokenizeCreator breaks a creator name into the lowercase fragments that must
// not show up as hashtags. It handles @/# prefixes, separator-delimited names
// (Cool_Creator_99), CamelCase boundaries and digit runs, plus joins of up to
// three consecutive fragments. Fragments under 3 characters are discarded to
// avoid false positives.
func TokenizeCreator(name string) map[string]struct{} {
	parts := make(map[string]struct{})

	clean := strings.TrimSpace(strings.TrimLeft(name, "@#"))
	if clean == "" {
		return parts
	}

	parts[strings.ToLower(clean)] = struct{}{}

	for _, sep := range []string{"_", "-", "."} {
		if !strings.Contains(clean, sep) {
			continue
		}
		for _, p := range strings.Split(clean, sep) {
			if len(p) >= 3 {
				parts[strings.ToLower(p)] = struct{}{}
			}
		}
	}

	frags := splitNameFragments(clean)
	for i := range frags {
		for j := i + 1; j <= len(frags) && j <= i+3; j++ {
			combined := strings.ToLower(strings.Join(frags[i:j], ""))
			if len(combined) >= 3 {
				parts[combined] = struct{}{}
			}
		}
	}

	return parts
}

// splitNameFragments cuts a name at CamelCase and letter/digit boundaries.
// "CoolCreator99" yields ["Cool", "Creator", "99"].
func splitNameFragments(name string) []string {
	var frags []string
	runes := []rune(name)
	i := 0
	for i < len(runes) {
		switch {
		case unicode.IsDigit(runes[i]):
			j := i
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			frags = append(frags, string(runes[i:j]))
			i = j
		case unicode.IsLetter(runes[i]):
			j := i
			for j < len(runes) && unicode.IsUpper(runes[j]) {
				j++
			}
			for j < len(runes) && unicode.IsLower(runes[j]) {
				j++
			}
			frags = append(frags, string(runes[i:j]))
			i = j
		default:
			i++
		}
	}
	return frags
}

// StripCreatorHashtags removes hashtags derived from the creator's name.
// A hashtag is removed when it equals a name fragment exactly, or when a
// fragment of 4+ characters is a substring of it. Shorter fragments require
// an exact match so tags like #art survive a creator named "Art_Dept".
func (v *Validator) StripCreatorHashtags(text, creator string) string {
	parts := TokenizeCreator(creator)
	if len(parts) == 0 {
		return text
	}

	for _, tag := range ExtractHashtags(text) {
		lower := strings.ToLower(tag)
		remove := false
		if _, ok := parts[lower]; ok {
			remove = true
		} else {
			for part := range parts {
				if len(part) >= 4 && strings.Contains(lower, part) {
					remove = true
					break
				}
			}
		}
		if remove {
			v.logger.Warn("removed creator-derived hashtag", "hashtag", tag, "creator", creator)
			text = removeHashtag(text, tag)
		}
	}
	return text
}
