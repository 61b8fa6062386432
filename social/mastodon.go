package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// MastodonPoster publishes statuses to a Mastodon instance.
type MastodonPoster struct {
	baseURL     string
	accessToken string
	client      *http.Client
	logger      *slog.Logger
}

// NewMastodonPoster creates a poster for the given instance, e.g.
// "https://fosstodon.org".
func NewMastodonPoster(baseURL, accessToken string, logger *slog.Logger) (*MastodonPoster, error) {
	if baseURL == "" || accessToken == "" {
		return nil, fmt.Errorf("mastodon base URL and access token required")
	}
	return &MastodonPoster{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}, nil
}

// Name identifies the destination.
func (m *MastodonPoster) Name() string { return "mastodon" }

// Post publishes the text as a new status.
func (m *MastodonPoster) Post(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("status", text)
	form.Set("visibility", "public")

	err := retry.Do(
		func() error {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost,
				m.baseURL+"/api/v1/statuses", strings.NewReader(form.Encode()))
			if reqErr != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", reqErr))
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("Authorization", "Bearer "+m.accessToken)

			resp, doErr := m.client.Do(req)
			if doErr != nil {
				return fmt.Errorf("post status: %w", doErr)
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					m.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var status struct {
					ID  string `json:"id"`
					URL string `json:"url"`
				}
				if decodeErr := json.NewDecoder(resp.Body).Decode(&status); decodeErr == nil {
					m.logger.Debug("Status published", "id", status.ID, "url", status.URL)
				}
				return nil
			}

			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			statusErr := fmt.Errorf("instance returned %d: %s", resp.StatusCode, respBody)
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
				resp.StatusCode == http.StatusUnprocessableEntity {
				return retry.Unrecoverable(statusErr)
			}
			return statusErr
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			m.logger.Info("Retrying Mastodon delivery after error", "attempt", n, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("mastodon delivery after retries: %w", err)
	}
	return nil
}
