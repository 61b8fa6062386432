// Package main implements a daemon that watches YouTube channels and posts
// LLM-enhanced upload announcements to social destinations.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"

	"tube-herald/backend"
	"tube-herald/composer"
	"tube-herald/guardrail"
	"tube-herald/pkg/announce"
	"tube-herald/poller"
	"tube-herald/ratelimit"
	"tube-herald/social"
	"tube-herald/state"
	"tube-herald/throttle"
)

const defaultCheckInterval = 10 * time.Minute

// announcementTemplate is the fallback when no backend is configured or
// generation fails outright.
const announcementTemplate = "🎬 New %s video!\n\n%s\n\n%s"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional .env for local development
	if err := godotenv.Load(); err == nil {
		slog.Debug(".env loaded")
	}

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(ctx, logger); err != nil {
		logger.Error("Daemon failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	apiKey := os.Getenv("YOUTUBE_API_KEY")
	if apiKey == "" {
		return errors.New("YOUTUBE_API_KEY environment variable required")
	}

	channels := splitList(os.Getenv("YOUTUBE_CHANNELS"))
	if len(channels) == 0 {
		return errors.New("YOUTUBE_CHANNELS environment variable required (comma-separated channel IDs)")
	}

	store, cleanup, err := initStateStore(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	comp, err := initComposer(logger)
	if err != nil {
		return err
	}

	broadcaster, err := initBroadcaster(logger)
	if err != nil {
		return err
	}

	profiles := activeProfiles(broadcaster)
	if len(profiles) == 0 {
		return errors.New("no destination profiles match the registered posters")
	}
	logger.Info("Destinations configured", "destinations", broadcaster.Destinations())

	herald := &Herald{
		composer:    comp,
		broadcaster: broadcaster,
		profiles:    profiles,
		logger:      logger,
	}

	lister, err := poller.NewAPILister(ctx, apiKey, logger)
	if err != nil {
		return fmt.Errorf("init youtube lister: %w", err)
	}

	monitor := poller.New(lister, store, herald, channels, logger)
	startServer(store, logger)

	interval := envDuration("CHECK_INTERVAL", defaultCheckInterval)
	logger.Info("Starting channel watch loop", "channels", len(channels), "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := monitor.CheckAll(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("Shutting down")
				return nil
			}
			logger.Warn("Channel check failed", "error", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			logger.Info("Shutting down")
			return nil
		}
	}
}

// initStateStore picks Cloud Storage when STORAGE_BUCKET is set, otherwise a
// local directory.
func initStateStore(ctx context.Context, logger *slog.Logger) (*state.Store, func(), error) {
	bucket := os.Getenv("STORAGE_BUCKET")
	localStorage := os.Getenv("LOCAL_STORAGE")

	if bucket == "" && localStorage == "" {
		localStorage = "./data"
		logger.Info("No STORAGE_BUCKET set, defaulting to local storage", "storage_path", localStorage)
	}

	if localStorage != "" {
		if err := os.MkdirAll(localStorage, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create local storage directory: %w", err)
		}
		return state.New(nil, "", localStorage, logger), func() {}, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close storage client", "error", err)
		}
	}
	return state.New(client, bucket, "", logger), cleanup, nil
}

// initComposer wires the generation pipeline for whichever model backend is
// configured. Returns nil when none is, leaving the daemon in template-only
// mode.
func initComposer(logger *slog.Logger) (*composer.Composer, error) {
	provider, err := initProvider(logger)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		logger.Info("No model backend configured, announcements will use the plain template")
		return nil, nil
	}

	limiter, err := ratelimit.New(
		envInt("LLM_MAX_REQUESTS", 10),
		envDuration("LLM_RATE_WINDOW", time.Minute),
		logger)
	if err != nil {
		return nil, fmt.Errorf("init rate limiter: %w", err)
	}

	minDelay := envDuration("LLM_MIN_DELAY", 2*time.Second)
	gate, err := throttle.New(envInt("LLM_MAX_CONCURRENT", 4), minDelay, logger)
	if err != nil {
		return nil, fmt.Errorf("init throttle: %w", err)
	}

	client, err := backend.NewClient(provider, gate, limiter, backend.DefaultConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("init backend client: %w", err)
	}

	validator, err := guardrail.New(guardrail.DefaultConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("init validator: %w", err)
	}

	comp, err := composer.New(client, validator, composer.DefaultConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("init composer: %w", err)
	}

	logger.Info("Model backend configured", "provider", provider.Name())
	return comp, nil
}

// initProvider selects a model backend from the environment: Gemini first,
// then OpenAI, then an OpenAI-compatible local endpoint.
func initProvider(logger *slog.Logger) (backend.Provider, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		gemini, err := backend.NewGemini(context.Background(), key, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			return nil, fmt.Errorf("init gemini backend: %w", err)
		}
		return gemini, nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		openai, err := backend.NewOpenAI(key, os.Getenv("OPENAI_MODEL"), "")
		if err != nil {
			return nil, fmt.Errorf("init openai backend: %w", err)
		}
		return openai, nil
	}
	if baseURL := os.Getenv("OLLAMA_URL"); baseURL != "" {
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = strings.TrimRight(baseURL, "/") + "/v1"
		}
		ollama, err := backend.NewOpenAI("ollama", os.Getenv("OLLAMA_MODEL"), baseURL)
		if err != nil {
			return nil, fmt.Errorf("init ollama backend: %w", err)
		}
		logger.Info("Using OpenAI-compatible local endpoint", "url", baseURL)
		return ollama, nil
	}
	return nil, nil
}

// initBroadcaster registers a poster for every destination with credentials.
// MOCK_SOCIAL=1 registers logging mocks for all default destinations instead.
func initBroadcaster(logger *slog.Logger) (*social.Broadcaster, error) {
	broadcaster := social.NewBroadcaster(logger)

	if os.Getenv("MOCK_SOCIAL") == "1" {
		logger.Info("Mock social mode enabled")
		for _, profile := range announce.DefaultProfiles() {
			broadcaster.Register(social.NewMockPoster(profile.Name, logger))
		}
		return broadcaster, nil
	}

	if webhook := os.Getenv("DISCORD_WEBHOOK_URL"); webhook != "" {
		discord, err := social.NewDiscordPoster(webhook, logger)
		if err != nil {
			return nil, fmt.Errorf("init discord poster: %w", err)
		}
		broadcaster.Register(discord)
	}

	if baseURL := os.Getenv("MASTODON_BASE_URL"); baseURL != "" {
		mastodon, err := social.NewMastodonPoster(baseURL, os.Getenv("MASTODON_ACCESS_TOKEN"), logger)
		if err != nil {
			return nil, fmt.Errorf("init mastodon poster: %w", err)
		}
		broadcaster.Register(mastodon)
	}

	if homeserver := os.Getenv("MATRIX_HOMESERVER"); homeserver != "" {
		matrix, err := social.NewMatrixPoster(homeserver, os.Getenv("MATRIX_ROOM_ID"), os.Getenv("MATRIX_ACCESS_TOKEN"), logger)
		if err != nil {
			return nil, fmt.Errorf("init matrix poster: %w", err)
		}
		broadcaster.Register(matrix)
	}

	if len(broadcaster.Destinations()) == 0 {
		return nil, errors.New("no social destinations configured (set DISCORD_WEBHOOK_URL, MASTODON_BASE_URL or MATRIX_HOMESERVER, or MOCK_SOCIAL=1)")
	}
	return broadcaster, nil
}

// activeProfiles filters the default destination profiles down to those with
// a registered poster.
func activeProfiles(broadcaster *social.Broadcaster) []announce.DestinationProfile {
	registered := make(map[string]bool)
	for _, name := range broadcaster.Destinations() {
		registered[name] = true
	}

	var profiles []announce.DestinationProfile
	for _, profile := range announce.DefaultProfiles() {
		if registered[strings.ToLower(profile.Name)] {
			profiles = append(profiles, profile)
		}
	}
	return profiles
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func logLevel() slog.Level {
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "name", name, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Invalid duration in environment, using default", "name", name, "value", raw, "default", fallback.String())
		return fallback
	}
	return v
}

func startServer(store *state.Store, logger *slog.Logger) {
	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/statusz", handleStatus(store, logger))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		logger.Info("Starting HTTP server", "port", port)
		if err := http.ListenAndServe(":"+port, nil); err != nil {
			logger.Error("Server failed", "error", err)
		}
	}()
}
