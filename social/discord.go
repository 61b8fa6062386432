package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// DiscordPoster posts announcements through a Discord-compatible webhook.
type DiscordPoster struct {
	webhookURL string
	client     *http.Client
	logger     *slog.Logger
}

// NewDiscordPoster creates a Discord webhook poster.
func NewDiscordPoster(webhookURL string, logger *slog.Logger) (*DiscordPoster, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("discord webhook URL required")
	}
	return &DiscordPoster{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

// Name identifies the destination.
func (d *DiscordPoster) Name() string { return "discord" }

type discordMessage struct {
	Content string `json:"content"`
}

// Post sends the text to the webhook, retrying transient failures.
func (d *DiscordPoster) Post(ctx context.Context, text string) error {
	body, err := json.Marshal(discordMessage{Content: text})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	err = retry.Do(
		func() error {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
			if reqErr != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", reqErr))
			}
			req.Header.Set("Content-Type", "application/json")

			resp, doErr := d.client.Do(req)
			if doErr != nil {
				return fmt.Errorf("send webhook: %w", doErr)
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					d.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}

			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			webhookErr := fmt.Errorf("webhook returned %d: %s", resp.StatusCode, respBody)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return retry.Unrecoverable(webhookErr)
			}
			return webhookErr
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			d.logger.Info("Retrying Discord delivery after error", "attempt", n, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("discord delivery after retries: %w", err)
	}
	return nil
}
