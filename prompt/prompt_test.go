package prompt

import (
	"strings"
	"testing"

	"tube-herald/pkg/announce"
)

func testVideo() announce.VideoRecord {
	return announce.VideoRecord{
		Title:       "Building a Home Server",
		Description: "Full walkthrough from hardware to config. More at https://example.com/notes",
		URL:         "https://youtube.com/watch?v=abc123",
		Platform:    "YouTube",
		Creator:     "TechTinkerer",
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	video := testVideo()
	dest := announce.DestinationProfile{Name: "mastodon", MaxChars: 400, Hashtags: announce.Exact(3), Style: announce.StyleThorough}

	if Build(video, dest, false) != Build(video, dest, false) {
		t.Error("Build() is not deterministic for identical inputs")
	}
}

func TestBuildContainsCoreInstructions(t *testing.T) {
	dest := announce.DestinationProfile{Name: "bluesky", MaxChars: 250, Hashtags: announce.Exact(3), Style: announce.StyleCasual}
	got := Build(testVideo(), dest, false)

	for _, want := range []string{
		`"Building a Home Server"`,
		"250 characters or less",
		"EXACTLY 3 hashtags",
		"DO NOT include any URL",
		"insane",
		"legendary",
		`"TechTinkerer"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Build() missing %q", want)
		}
	}
}

func TestBuildStripsDescriptionURLs(t *testing.T) {
	dest := announce.DestinationProfile{Name: "discord", MaxChars: 300, Style: announce.StyleCasual}
	got := Build(testVideo(), dest, false)

	if strings.Contains(got, "https://example.com/notes") {
		t.Error("Build() leaked a description URL into the prompt")
	}
}

func TestBuildHashtagPolicies(t *testing.T) {
	video := testVideo()

	tests := []struct {
		name        string
		policy      announce.HashtagPolicy
		wantPhrase  string
		wantAbsence string
	}{
		{
			name:        "disallowed omits hashtag section",
			policy:      announce.None(),
			wantAbsence: "HASHTAG RULES",
		},
		{
			name:       "exact count",
			policy:     announce.Exact(2),
			wantPhrase: "EXACTLY 2 hashtags",
		},
		{
			name:       "range",
			policy:     announce.Range(1, 4),
			wantPhrase: "between 1 and 4 hashtags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := announce.DestinationProfile{Name: "x", MaxChars: 300, Hashtags: tt.policy, Style: announce.StyleCasual}
			got := Build(video, dest, false)

			if tt.wantPhrase != "" && !strings.Contains(got, tt.wantPhrase) {
				t.Errorf("Build() missing %q", tt.wantPhrase)
			}
			if tt.wantAbsence != "" && strings.Contains(got, tt.wantAbsence) {
				t.Errorf("Build() should not contain %q", tt.wantAbsence)
			}
		})
	}
}

func TestBuildStrictMode(t *testing.T) {
	dest := announce.DestinationProfile{Name: "bluesky", MaxChars: 250, Hashtags: announce.Exact(3), Style: announce.StyleCasual}

	relaxed := Build(testVideo(), dest, false)
	strict := Build(testVideo(), dest, true)

	if strings.Contains(relaxed, "previous attempt violated") {
		t.Error("non-strict prompt contains the strict emphasis block")
	}
	if !strings.HasPrefix(strict, "CRITICAL:") {
		t.Error("strict prompt missing the leading emphasis block")
	}
	if !strings.Contains(strict, relaxed[:50]) {
		// The strict prompt is the relaxed prompt plus a prefix.
		t.Error("strict prompt diverges from the base instructions")
	}
}

func TestBuildStyles(t *testing.T) {
	video := testVideo()
	for style, phrase := range map[announce.Style]string{
		announce.StyleFormal:   "professional",
		announce.StyleCasual:   "conversational",
		announce.StyleThorough: "descriptive",
		announce.StyleTerse:    "punchy",
	} {
		dest := announce.DestinationProfile{Name: "x", MaxChars: 300, Style: style}
		if !strings.Contains(Build(video, dest, false), phrase) {
			t.Errorf("style %q prompt missing %q", style, phrase)
		}
	}
}
