package guardrail

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var (
	hashtagTokenPattern = regexp.MustCompile(`#\w+`)
	nonWordPattern      = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// normalizeMessage reduces a message to its comparable core: lower-cased,
// hashtags and punctuation stripped, whitespace collapsed.
func normalizeMessage(text string) string {
	normalized := strings.ToLower(text)
	normalized = hashtagTokenPattern.ReplaceAllString(normalized, "")
	normalized = nonWordPattern.ReplaceAllString(normalized, "")
	normalized = whitespacePattern.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// MessageCache is a bounded FIFO of recently emitted announcements, used to
// reject near-duplicates. Insertion evicts the oldest entry at capacity.
// Safe for concurrent use.
type MessageCache struct {
	mu        sync.Mutex
	entries   []string
	capacity  int
	threshold float64 // token-overlap ratio above which two messages are duplicates
}

// NewMessageCache creates a cache holding up to capacity normalized entries.
// Misconfiguration fails here, not at first use.
func NewMessageCache(capacity int, threshold float64) (*MessageCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("guardrail: cache capacity must be positive, got %d", capacity)
	}
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("guardrail: overlap threshold must be in (0, 1], got %v", threshold)
	}
	return &MessageCache{
		entries:   make([]string, 0, capacity),
		capacity:  capacity,
		threshold: threshold,
	}, nil
}

// IsDuplicate reports whether text matches a cached message exactly (after
// normalization) or overlaps one beyond the configured token ratio.
func (c *MessageCache) IsDuplicate(text string) bool {
	normalized := normalizeMessage(text)
	words := tokenSet(normalized)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cached := range c.entries {
		if normalized == cached {
			return true
		}
		if overlapRatio(words, tokenSet(cached)) > c.threshold {
			return true
		}
	}
	return false
}

// Add stores text, evicting the oldest entry once over capacity.
func (c *MessageCache) Add(text string) {
	normalized := normalizeMessage(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, normalized)
	if len(c.entries) > c.capacity {
		c.entries = c.entries[1:]
	}
}

// Len reports how many messages are cached.
func (c *MessageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func tokenSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		set[w] = struct{}{}
	}
	return set
}

// overlapRatio is shared tokens over the larger set's size.
func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}
	return float64(shared) / float64(larger)
}
