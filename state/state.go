// Package state persists per-channel announcement progress so a restart
// does not re-announce videos that were already posted.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/iterator"
)

// ChannelState records the newest video already announced for one channel.
type ChannelState struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name,omitempty"`
	LastVideoID string    `json:"last_video_id"`
	LastVideoAt time.Time `json:"last_video_at"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Store persists channel state to a local directory or a Cloud Storage
// bucket. A non-empty localPath wins over the bucket.
type Store struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
}

// New creates a state store.
func New(client *storage.Client, bucket, localPath string, logger *slog.Logger) *Store {
	return &Store{
		client:    client,
		logger:    logger,
		localPath: localPath,
		bucket:    bucket,
	}
}

// channelKey generates a stable object name from a channel ID. Returns ""
// for IDs that could escape the storage prefix.
func channelKey(channelID string) string {
	if channelID == "" || len(channelID) > 128 {
		return ""
	}
	for _, c := range channelID {
		ok := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_'
		if !ok {
			return ""
		}
	}
	return fmt.Sprintf("channel-%s.json", channelID)
}

// Save writes the state for one channel.
func (s *Store) Save(ctx context.Context, st *ChannelState) error {
	key := channelKey(st.ChannelID)
	if key == "" {
		return errors.New("invalid channel id")
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal channel state: %w", err)
	}

	if s.localPath != "" {
		filePath := filepath.Join(s.localPath, key)
		if err := os.WriteFile(filePath, data, 0o600); err != nil {
			return fmt.Errorf("write to local storage: %w", err)
		}
		s.logger.Debug("Channel state saved to local storage", "path", filePath, "last_video", st.LastVideoID)
		return nil
	}

	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying state save after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("save after retries: %w", err)
	}

	s.logger.Debug("Channel state saved", "key", key, "last_video", st.LastVideoID)
	return nil
}

// Load reads the state for one channel.
func (s *Store) Load(ctx context.Context, channelID string) (*ChannelState, error) {
	key := channelKey(channelID)
	if key == "" {
		return nil, errors.New("invalid channel id")
	}

	var data []byte

	if s.localPath != "" {
		var err error
		filePath := filepath.Join(s.localPath, key)
		data, err = os.ReadFile(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.New("storage: object doesn't exist")
			}
			return nil, fmt.Errorf("read from local storage: %w", err)
		}
	} else {
		var readData []byte
		err := retry.Do(
			func() error {
				r, openErr := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
				if openErr != nil {
					if errors.Is(openErr, storage.ErrObjectNotExist) {
						return retry.Unrecoverable(fmt.Errorf("open storage reader: %w", openErr))
					}
					return fmt.Errorf("open storage reader: %w", openErr)
				}
				defer func() {
					if closeErr := r.Close(); closeErr != nil {
						s.logger.Warn("Failed to close storage reader", "error", closeErr)
					}
				}()

				var readErr error
				readData, readErr = io.ReadAll(r)
				if readErr != nil {
					return fmt.Errorf("read from storage: %w", readErr)
				}
				return nil
			},
			retry.Attempts(3),
			retry.Delay(time.Second),
			retry.MaxDelay(2*time.Minute),
			retry.MaxJitter(10*time.Second),
			retry.Context(ctx),
			retry.OnRetry(func(n uint, retryErr error) {
				s.logger.Info("Retrying state load after error", "attempt", n, "key", key, "error", retryErr)
			}),
		)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotExist) {
				return nil, errors.New("storage: object doesn't exist")
			}
			return nil, fmt.Errorf("load after retries: %w", err)
		}
		data = readData
	}

	var st ChannelState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal channel state: %w", err)
	}
	return &st, nil
}

// List returns the state of every known channel.
func (s *Store) List(ctx context.Context) ([]*ChannelState, error) {
	var states []*ChannelState

	if s.localPath != "" {
		entries, err := os.ReadDir(s.localPath)
		if err != nil {
			return nil, fmt.Errorf("read local storage directory: %w", err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasPrefix(name, "channel-") || !strings.HasSuffix(name, ".json") {
				continue
			}
			channelID := strings.TrimSuffix(strings.TrimPrefix(name, "channel-"), ".json")
			st, err := s.Load(ctx, channelID)
			if err != nil {
				s.logger.Warn("Failed to load channel state", "file", name, "error", err)
				continue
			}
			states = append(states, st)
		}
		return states, nil
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: "channel-"})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate storage: %w", err)
		}
		channelID := strings.TrimSuffix(strings.TrimPrefix(attrs.Name, "channel-"), ".json")
		st, err := s.Load(ctx, channelID)
		if err != nil {
			s.logger.Warn("Failed to load channel state", "key", attrs.Name, "error", err)
			continue
		}
		states = append(states, st)
	}
	return states, nil
}

// IsNotFound checks if an error indicates missing channel state.
func IsNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "storage: object doesn't exist")
}
