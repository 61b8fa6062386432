package social

import (
	"bytes"
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
	"github.com/google/uuid"
)

// MatrixPoster sends announcements as m.room.message events to one room.
type MatrixPoster struct {
	homeserver  string
	roomID      string
	accessToken string
	client      *http.Client
	logger      *slog.Logger
}

// NewMatrixPoster creates a poster for a Matrix room.
func NewMatrixPoster(homeserver, roomID, accessToken string, logger *slog.Logger) (*MatrixPoster, error) {
	if homeserver == "" || roomID == "" || accessToken == "" {
		return nil, fmt.Errorf("matrix homeserver, room id and access token required")
	}
	return &MatrixPoster{
		homeserver:  strings.TrimRight(homeserver, "/"),
		roomID:      roomID,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}, nil
}

// Name identifies the destination.
func (m *MatrixPoster) Name() string { return "matrix" }

type matrixMessage struct {
	MsgType string `json:"msgtype"`
	Body    string `json:"body"`
}

// Post sends the text to the room. Each attempt reuses one transaction ID so
// retries cannot double-post.
func (m *MatrixPoster) Post(ctx context.Context, text string) error {
	body, err := json.Marshal(matrixMessage{MsgType: "m.text", Body: text})
	if err != nil {
		return fmt.Errorf("marshal room event: %w", err)
	}

	endpoint := fmt.Sprintf("%s/_matrix/client/v3/rooms/%s/send/m.room.message/%s",
		m.homeserver, url.PathEscape(m.roomID), uuid.NewString())

	err = retry.Do(
		func() error {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
			if reqErr != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", reqErr))
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+m.accessToken)

			resp, doErr := m.client.Do(req)
			if doErr != nil {
				return fmt.Errorf("send room event: %w", doErr)
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					m.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}

			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			sendErr := fmt.Errorf("homeserver returned %d: %s", resp.StatusCode, respBody)
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return retry.Unrecoverable(sendErr)
			}
			return sendErr
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			m.logger.Info("Retrying Matrix delivery after error", "attempt", n, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("matrix delivery after retries: %w", err)
	}
	return nil
}
