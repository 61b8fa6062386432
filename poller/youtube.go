package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"tube-herald/pkg/announce"
)

// ErrChannelNotFound indicates the channel ID resolved to nothing.
var ErrChannelNotFound = errors.New("channel not found")

// APILister lists channel uploads using the YouTube Data API v3.
type APILister struct {
	service *youtube.Service
	logger  *slog.Logger
}

// NewAPILister creates a YouTube Data API lister.
func NewAPILister(ctx context.Context, apiKey string, logger *slog.Logger) (*APILister, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube api key required")
	}
	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &APILister{service: service, logger: logger}, nil
}

// RecentUploads returns up to limit of the channel's newest uploads, newest
// first, along with the channel's display name.
func (a *APILister) RecentUploads(ctx context.Context, channelID string, limit int64) ([]announce.VideoRecord, string, error) {
	playlistID, channelName, err := a.uploadsPlaylist(ctx, channelID)
	if err != nil {
		return nil, "", err
	}

	var videos []announce.VideoRecord
	err = retry.Do(
		func() error {
			call := a.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(limit).
				Context(ctx)

			resp, callErr := call.Do()
			if callErr != nil {
				return classifyAPIError(callErr)
			}

			videos = videos[:0]
			for _, item := range resp.Items {
				video := announce.VideoRecord{
					Platform: "YouTube",
					Creator:  channelName,
				}
				if item.ContentDetails != nil {
					video.URL = "https://www.youtube.com/watch?v=" + item.ContentDetails.VideoId
				}
				if item.Snippet != nil {
					video.Title = item.Snippet.Title
					video.Description = item.Snippet.Description
					if t, parseErr := time.Parse(time.RFC3339, item.Snippet.PublishedAt); parseErr == nil {
						video.PublishedAt = t
					}
				}
				videos = append(videos, video)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(time.Minute),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			a.logger.Info("Retrying playlist fetch after error", "attempt", n, "channel", channelID, "error", retryErr)
		}),
	)
	if err != nil {
		return nil, "", fmt.Errorf("list uploads for %s: %w", channelID, err)
	}
	return videos, channelName, nil
}

// uploadsPlaylist resolves a channel's uploads playlist ID and display name.
func (a *APILister) uploadsPlaylist(ctx context.Context, channelID string) (string, string, error) {
	var playlistID, channelName string

	err := retry.Do(
		func() error {
			call := a.service.Channels.List([]string{"contentDetails", "snippet"}).
				Id(channelID).
				Context(ctx)

			resp, callErr := call.Do()
			if callErr != nil {
				return classifyAPIError(callErr)
			}
			if len(resp.Items) == 0 {
				return retry.Unrecoverable(fmt.Errorf("%w: %s", ErrChannelNotFound, channelID))
			}

			channel := resp.Items[0]
			playlistID = channel.ContentDetails.RelatedPlaylists.Uploads
			if channel.Snippet != nil {
				channelName = channel.Snippet.Title
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(time.Minute),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			a.logger.Info("Retrying channel lookup after error", "attempt", n, "channel", channelID, "error", retryErr)
		}),
	)
	if err != nil {
		return "", "", fmt.Errorf("resolve uploads playlist for %s: %w", channelID, err)
	}
	return playlistID, channelName, nil
}

// classifyAPIError marks 4xx responses, except quota and rate signals, as
// unrecoverable so retry backs off only for transient failures.
func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if strings.Contains(err.Error(), "quotaExceeded") || strings.Contains(err.Error(), "rateLimitExceeded") {
			return err
		}
		if apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != 429 {
			return retry.Unrecoverable(err)
		}
	}
	return err
}
