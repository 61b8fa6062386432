// Package poller watches YouTube channels and hands newly published videos
// to the announcement pipeline.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tube-herald/pkg/announce"
	"tube-herald/state"
)

// Safety limit: max videos to announce for a single channel in one check.
const maxAnnouncementsPerCheck = 3

// Lister fetches a channel's recent uploads, newest first.
type Lister interface {
	RecentUploads(ctx context.Context, channelID string, limit int64) ([]announce.VideoRecord, string, error)
}

// StateStore persists per-channel progress.
type StateStore interface {
	Load(ctx context.Context, channelID string) (*state.ChannelState, error)
	Save(ctx context.Context, st *state.ChannelState) error
}

// Announcer publishes one video to the configured destinations.
type Announcer interface {
	Announce(ctx context.Context, video announce.VideoRecord) error
}

// Monitor handles channel polling logic.
type Monitor struct {
	lister    Lister
	store     StateStore
	announcer Announcer
	logger    *slog.Logger
	channels  []string
	fetch     int64
}

// New creates a poll monitor for the given channel IDs.
func New(lister Lister, store StateStore, announcer Announcer, channels []string, logger *slog.Logger) *Monitor {
	return &Monitor{
		lister:    lister,
		store:     store,
		announcer: announcer,
		logger:    logger,
		channels:  channels,
		fetch:     10,
	}
}

// CheckAll checks every configured channel for new uploads. Channels with no
// recent activity are skipped until their adaptive interval elapses.
func (m *Monitor) CheckAll(ctx context.Context) error {
	now := time.Now()
	m.logger.Info("Checking channels", "count", len(m.channels), "timestamp", now.Format(time.RFC3339))

	var checked, skipped int
	for _, channelID := range m.channels {
		select {
		case <-ctx.Done():
			m.logger.Info("Context cancelled, stopping channel check", "error", ctx.Err())
			return ctx.Err()
		default:
		}

		st, err := m.store.Load(ctx, channelID)
		if err != nil {
			if !state.IsNotFound(err) {
				m.logger.Warn("Failed to load channel state", "channel", channelID, "error", err)
				continue
			}
			st = &state.ChannelState{ChannelID: channelID}
		}

		interval := calculateInterval(st.LastVideoAt, st.CheckedAt)
		if now.Sub(st.CheckedAt) < interval {
			m.logger.Debug("Skipping channel (not due for polling)",
				"channel", channelID,
				"last_checked", st.CheckedAt.Format(time.RFC3339),
				"interval", interval.String())
			skipped++
			continue
		}

		checked++
		if err := m.checkChannel(ctx, st, now); err != nil {
			m.logger.Warn("Channel check failed", "channel", channelID, "error", err)
			// Continue with other channels despite errors
		}
	}

	m.logger.Info("Channel check completed", "checked", checked, "skipped", skipped)
	return nil
}

func (m *Monitor) checkChannel(ctx context.Context, st *state.ChannelState, now time.Time) error {
	m.logger.Info("Starting channel check",
		"channel", st.ChannelID,
		"last_video_id", st.LastVideoID)

	videos, channelName, err := m.lister.RecentUploads(ctx, st.ChannelID, m.fetch)
	if err != nil {
		return fmt.Errorf("fetch uploads: %w", err)
	}

	st.CheckedAt = now
	if channelName != "" {
		st.ChannelName = channelName
	}

	if len(videos) == 0 {
		m.logger.Debug("No uploads found", "channel", st.ChannelID)
		return m.store.Save(ctx, st)
	}

	newest := videos[0]

	if st.LastVideoID == "" {
		// First check - record the newest upload without announcing.
		st.LastVideoID = videoID(newest)
		st.LastVideoAt = newest.PublishedAt
		if err := m.store.Save(ctx, st); err != nil {
			return fmt.Errorf("save channel state: %w", err)
		}
		m.logger.Info("Initial video recorded", "channel", st.ChannelID, "video_id", st.LastVideoID, "title", newest.Title)
		return nil
	}

	// Collect uploads newer than the last announced one.
	var fresh []announce.VideoRecord
	foundLast := false
	for _, video := range videos {
		if videoID(video) == st.LastVideoID {
			foundLast = true
			break
		}
		fresh = append(fresh, video)
	}

	if !foundLast && len(fresh) == len(videos) {
		m.logger.Warn("Last announced video not in fetched uploads - possible gap",
			"channel", st.ChannelID,
			"last_video_id", st.LastVideoID,
			"fetched", len(videos))
	}

	if len(fresh) > maxAnnouncementsPerCheck {
		m.logger.Warn("Too many new uploads, limiting to most recent",
			"channel", st.ChannelID,
			"total_new", len(fresh),
			"announcing", maxAnnouncementsPerCheck)
		fresh = fresh[:maxAnnouncementsPerCheck]
	}

	if len(fresh) == 0 {
		return m.store.Save(ctx, st)
	}

	// Announce oldest first so destination feeds read in upload order.
	for i := len(fresh) - 1; i >= 0; i-- {
		video := fresh[i]
		if err := m.announcer.Announce(ctx, video); err != nil {
			m.logger.Warn("Announcement failed, keeping video for next check",
				"channel", st.ChannelID,
				"video_id", videoID(video),
				"error", err)
			break
		}
		st.LastVideoID = videoID(video)
		st.LastVideoAt = video.PublishedAt
		m.logger.Info("Announced new upload",
			"channel", st.ChannelID,
			"video_id", st.LastVideoID,
			"title", video.Title)
	}

	if err := m.store.Save(ctx, st); err != nil {
		return fmt.Errorf("save channel state: %w", err)
	}
	return nil
}

// videoID extracts the watch ID from a video's URL.
func videoID(video announce.VideoRecord) string {
	const marker = "watch?v="
	if i := strings.Index(video.URL, marker); i >= 0 {
		return video.URL[i+len(marker):]
	}
	return video.URL
}

// calculateInterval determines how often to poll a channel based on how
// recently it last published.
func calculateInterval(lastVideoAt, checkedAt time.Time) time.Duration {
	// Never checked or no known uploads: poll now
	if checkedAt.IsZero() || lastVideoAt.IsZero() {
		return 0
	}

	sinceLastVideo := time.Since(lastVideoAt)

	switch {
	case sinceLastVideo < 24*time.Hour:
		return 15 * time.Minute
	case sinceLastVideo < 7*24*time.Hour:
		return time.Hour
	case sinceLastVideo < 30*24*time.Hour:
		return 6 * time.Hour
	default:
		return 24 * time.Hour
	}
}
