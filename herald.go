package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tube-herald/composer"
	"tube-herald/pkg/announce"
	"tube-herald/social"
)

// Herald publishes one video to every active destination. Generation
// failures fall back to the plain template; a video is only reported as
// failed when no destination could be delivered at all, so a partial outage
// does not cause re-announcement of what already went out.
type Herald struct {
	composer    *composer.Composer // nil in template-only mode
	broadcaster *social.Broadcaster
	profiles    []announce.DestinationProfile
	logger      *slog.Logger
}

// Announce implements poller.Announcer.
func (h *Herald) Announce(ctx context.Context, video announce.VideoRecord) error {
	var delivered int
	var errs []error

	for _, res := range h.compose(ctx, video) {
		text := res.Text
		if res.Err != nil {
			h.logger.Warn("Generation failed, using template",
				"destination", res.Destination,
				"title", video.Title,
				"error", res.Err)
			text = templateText(video)
		}

		if err := h.broadcaster.Deliver(ctx, res.Destination, text); err != nil {
			h.logger.Warn("Delivery failed",
				"destination", res.Destination,
				"title", video.Title,
				"error", err)
			errs = append(errs, err)
			continue
		}
		delivered++
	}

	if delivered == 0 && len(errs) > 0 {
		return fmt.Errorf("all destinations failed for %q: %w", video.Title, errors.Join(errs...))
	}
	return nil
}

func (h *Herald) compose(ctx context.Context, video announce.VideoRecord) []composer.Result {
	if h.composer != nil {
		return h.composer.ComposeAll(ctx, video, h.profiles)
	}

	results := make([]composer.Result, 0, len(h.profiles))
	for _, profile := range h.profiles {
		results = append(results, composer.Result{
			Destination: profile.Name,
			Text:        templateText(video),
		})
	}
	return results
}

func templateText(video announce.VideoRecord) string {
	return fmt.Sprintf(announcementTemplate, video.Platform, video.Title, video.URL)
}
