package guardrail

import "testing"

func TestSafeTrim(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"under limit unchanged", "short message #tag", 50, "short message #tag"},
		{"exact limit unchanged", "abcde", 5, "abcde"},
		{"cuts at word boundary", "check out my new #PCBuild #Hardware #Tutorial", 40, "check out my new #PCBuild #Hardware"},
		{"never splits a hashtag", "some words #LongHashtagName", 20, "some words"},
		{"single long token hard cut", "abcdefghijklmnop", 10, "abcdefghij"},
		{"zero limit", "anything", 0, ""},
		{"trims surrounding space", "  padded text  ", 50, "padded text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeTrim(tt.text, tt.limit); got != tt.want {
				t.Errorf("SafeTrim(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}

func TestSafeTrimCountsRunes(t *testing.T) {
	text := "🎬🎬🎬🎬🎬"
	if got := SafeTrim(text, 3); got != "🎬🎬🎬" {
		t.Errorf("SafeTrim rune count = %q", got)
	}
}
