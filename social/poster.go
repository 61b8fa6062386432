// Package social delivers finalized announcements to social destinations
// via pluggable posters.
package social

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Poster defines the interface for destination delivery implementations.
type Poster interface {
	// Name identifies the destination this poster serves (e.g. "discord").
	Name() string
	// Post publishes the text.
	Post(ctx context.Context, text string) error
}

// Broadcaster routes announcement text to the poster registered for each
// destination.
type Broadcaster struct {
	posters map[string]Poster
	logger  *slog.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		posters: make(map[string]Poster),
		logger:  logger,
	}
}

// Register adds a poster for its destination, replacing any previous one.
func (b *Broadcaster) Register(p Poster) {
	b.posters[strings.ToLower(p.Name())] = p
}

// Destinations returns the names of all registered posters.
func (b *Broadcaster) Destinations() []string {
	names := make([]string, 0, len(b.posters))
	for name := range b.posters {
		names = append(names, name)
	}
	return names
}

// Deliver posts text to one destination.
func (b *Broadcaster) Deliver(ctx context.Context, destination, text string) error {
	p, ok := b.posters[strings.ToLower(destination)]
	if !ok {
		return fmt.Errorf("no poster registered for %q", destination)
	}

	b.logger.Info("Delivering announcement",
		"destination", destination,
		"chars", len(text))

	if err := p.Post(ctx, text); err != nil {
		return fmt.Errorf("post to %s: %w", destination, err)
	}
	return nil
}
