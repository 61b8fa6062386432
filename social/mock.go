package social

import (
	"context"
	"log/slog"
	"sync"
)

// MockPoster logs announcements instead of delivering them. Used for local
// development and as a stand-in for destinations without credentials.
type MockPoster struct {
	name   string
	logger *slog.Logger

	mu    sync.Mutex
	posts []string
}

// NewMockPoster creates a mock poster for the given destination name.
func NewMockPoster(name string, logger *slog.Logger) *MockPoster {
	return &MockPoster{name: name, logger: logger}
}

// Name identifies the destination.
func (m *MockPoster) Name() string { return m.name }

// Post records and logs the text.
func (m *MockPoster) Post(_ context.Context, text string) error {
	m.mu.Lock()
	m.posts = append(m.posts, text)
	m.mu.Unlock()

	m.logger.Info("MOCK POST",
		"destination", m.name,
		"chars", len(text),
		"text", text)
	return nil
}

// Posts returns everything posted so far.
func (m *MockPoster) Posts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.posts...)
}
