package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tube-herald/composer"
	"tube-herald/guardrail"
	"tube-herald/pkg/announce"
	"tube-herald/social"
	"tube-herald/state"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "UCabc", []string{"UCabc"}},
		{"spaced", " UCabc , UCdef ", []string{"UCabc", "UCdef"}},
		{"trailing comma", "UCabc,", []string{"UCabc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitList(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("splitList(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitList(%q)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := envInt("TEST_INT", 7); got != 42 {
		t.Errorf("envInt = %d, want 42", got)
	}
	if got := envInt("TEST_INT_MISSING", 7); got != 7 {
		t.Errorf("envInt fallback = %d, want 7", got)
	}
	t.Setenv("TEST_INT_BAD", "nope")
	if got := envInt("TEST_INT_BAD", 7); got != 7 {
		t.Errorf("envInt bad value = %d, want 7", got)
	}

	t.Setenv("TEST_DUR", "90s")
	if got := envDuration("TEST_DUR", time.Minute); got != 90*time.Second {
		t.Errorf("envDuration = %v, want 90s", got)
	}
	if got := envDuration("TEST_DUR_MISSING", time.Minute); got != time.Minute {
		t.Errorf("envDuration fallback = %v, want 1m", got)
	}
}

func TestTemplateText(t *testing.T) {
	got := templateText(announce.VideoRecord{
		Title:    "Building a Home Server",
		URL:      "https://youtube.com/watch?v=abc",
		Platform: "YouTube",
	})
	want := "🎬 New YouTube video!\n\nBuilding a Home Server\n\nhttps://youtube.com/watch?v=abc"
	if got != want {
		t.Errorf("templateText = %q, want %q", got, want)
	}
}

func TestHeraldTemplateMode(t *testing.T) {
	broadcaster := social.NewBroadcaster(slog.Default())
	mock := social.NewMockPoster("discord", slog.Default())
	broadcaster.Register(mock)

	herald := &Herald{
		broadcaster: broadcaster,
		profiles:    activeProfiles(broadcaster),
		logger:      slog.Default(),
	}

	video := announce.VideoRecord{Title: "Test Upload", URL: "https://youtube.com/watch?v=x", Platform: "YouTube"}
	if err := herald.Announce(context.Background(), video); err != nil {
		t.Fatalf("Announce: %v", err)
	}

	posts := mock.Posts()
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}
	if !strings.Contains(posts[0], "Test Upload") || !strings.Contains(posts[0], "https://youtube.com/watch?v=x") {
		t.Errorf("post %q missing title or link", posts[0])
	}
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, string) (string, error) {
	return "", errors.New("backend down")
}

func TestHeraldFallsBackToTemplateWhenGenerationFails(t *testing.T) {
	validator, err := guardrail.New(guardrail.DefaultConfig(), slog.Default())
	if err != nil {
		t.Fatalf("guardrail.New: %v", err)
	}
	cfg := composer.DefaultConfig()
	cfg.DestinationDelay = 0
	comp, err := composer.New(failingGenerator{}, validator, cfg, slog.Default())
	if err != nil {
		t.Fatalf("composer.New: %v", err)
	}

	broadcaster := social.NewBroadcaster(slog.Default())
	mock := social.NewMockPoster("mastodon", slog.Default())
	broadcaster.Register(mock)

	herald := &Herald{
		composer:    comp,
		broadcaster: broadcaster,
		profiles:    activeProfiles(broadcaster),
		logger:      slog.Default(),
	}

	video := announce.VideoRecord{Title: "Test Upload", URL: "https://youtube.com/watch?v=x", Platform: "YouTube"}
	if err := herald.Announce(context.Background(), video); err != nil {
		t.Fatalf("Announce: %v", err)
	}

	posts := mock.Posts()
	if len(posts) != 1 || !strings.Contains(posts[0], "🎬 New YouTube video!") {
		t.Errorf("template fallback not delivered: %v", posts)
	}
}

func TestHeraldReportsTotalDeliveryFailure(t *testing.T) {
	// Profiles present but no matching poster registered.
	registered := social.NewBroadcaster(slog.Default())
	registered.Register(social.NewMockPoster("discord", slog.Default()))

	herald := &Herald{
		broadcaster: social.NewBroadcaster(slog.Default()),
		profiles:    activeProfiles(registered),
		logger:      slog.Default(),
	}

	video := announce.VideoRecord{Title: "Test Upload", URL: "https://youtube.com/watch?v=x", Platform: "YouTube"}
	if err := herald.Announce(context.Background(), video); err == nil {
		t.Error("Announce succeeded with no deliverable destination")
	}
}

func TestActiveProfiles(t *testing.T) {
	broadcaster := social.NewBroadcaster(slog.Default())
	broadcaster.Register(social.NewMockPoster("discord", slog.Default()))
	broadcaster.Register(social.NewMockPoster("mastodon", slog.Default()))

	profiles := activeProfiles(broadcaster)
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}
	for _, p := range profiles {
		if p.Name != "discord" && p.Name != "mastodon" {
			t.Errorf("unexpected profile %q", p.Name)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %q", body["status"])
	}

	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	rec = httptest.NewRecorder()
	handleHealth(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	store := state.New(nil, "", t.TempDir(), slog.Default())
	if err := store.Save(context.Background(), &state.ChannelState{ChannelID: "UCx", LastVideoID: "v9"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/statusz", nil)
	rec := httptest.NewRecorder()
	handleStatus(store, slog.Default())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var states []state.ChannelState
	if err := json.Unmarshal(rec.Body.Bytes(), &states); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(states) != 1 || states[0].LastVideoID != "v9" {
		t.Errorf("states = %+v", states)
	}
}
