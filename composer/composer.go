// Package composer orchestrates announcement generation for one video and
// destination: build the prompt, call the backend, validate, retry once in
// strict mode when the model misbehaves, then finalize the text and append
// the video link.
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"tube-herald/guardrail"
	"tube-herald/pkg/announce"
	"tube-herald/prompt"
)

// TextGenerator produces raw announcement text from a prompt. Satisfied by
// backend.Client.
type TextGenerator interface {
	Generate(ctx context.Context, promptText string) (string, error)
}

// Config bounds the generate-validate loop.
type Config struct {
	// ValidationRounds is the total number of generation attempts per
	// destination. The first round uses the normal prompt, later rounds
	// the strict one.
	ValidationRounds int
	// DestinationDelay spaces out destinations within one announcement so
	// a multi-destination post does not burst the shared backend budget.
	DestinationDelay time.Duration
}

// DefaultConfig allows one strict regeneration and a short pause between
// destinations.
func DefaultConfig() Config {
	return Config{
		ValidationRounds: 2,
		DestinationDelay: 500 * time.Millisecond,
	}
}

// Composer drives the generation pipeline. Safe for concurrent use as long
// as the underlying generator and validator are.
type Composer struct {
	generator TextGenerator
	validator *guardrail.Validator
	logger    *slog.Logger
	cfg       Config
}

// New builds a Composer.
func New(generator TextGenerator, validator *guardrail.Validator, cfg Config, logger *slog.Logger) (*Composer, error) {
	if generator == nil {
		return nil, fmt.Errorf("composer: generator is required")
	}
	if validator == nil {
		return nil, fmt.Errorf("composer: validator is required")
	}
	if cfg.ValidationRounds < 1 {
		return nil, fmt.Errorf("composer: validation rounds must be at least 1, got %d", cfg.ValidationRounds)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{generator: generator, validator: validator, logger: logger, cfg: cfg}, nil
}

// Result is the outcome of composing for one destination.
type Result struct {
	Destination string
	Text        string
	Err         error
}

// Compose generates a finalized announcement for one destination. A backend
// failure is returned to the caller, which is expected to fall back to a
// template. A candidate that still fails validation after the strict round
// is accepted anyway; best-effort delivery beats silence.
func (c *Composer) Compose(ctx context.Context, video announce.VideoRecord, dest announce.DestinationProfile) (string, error) {
	logger := c.logger.With(
		"attempt_id", uuid.NewString(),
		"destination", dest.Name,
		"title", video.Title)

	var text string
	strict := false
	for round := 1; round <= c.cfg.ValidationRounds; round++ {
		generated, err := c.generator.Generate(ctx, prompt.Build(video, dest, strict))
		if err != nil {
			return "", fmt.Errorf("compose for %s: %w", dest.Name, err)
		}
		text = generated

		outcome := c.validator.Validate(text, dest.Hashtags, video.Title, video.Creator, dest.Name)
		if outcome.Valid {
			logger.Debug("candidate passed validation", "round", round)
			return c.finalize(text, video, dest), nil
		}
		logger.Warn("candidate failed validation", "round", round, "issues", outcome.Issues)
		strict = true
	}

	logger.Warn("accepting candidate with unresolved issues")
	return c.finalize(text, video, dest), nil
}

// ComposeAll runs Compose for every destination in order, pausing between
// them. One destination failing does not stop the rest.
func (c *Composer) ComposeAll(ctx context.Context, video announce.VideoRecord, profiles []announce.DestinationProfile) []Result {
	results := make([]Result, 0, len(profiles))
	for i, dest := range profiles {
		if i > 0 && c.cfg.DestinationDelay > 0 {
			select {
			case <-time.After(c.cfg.DestinationDelay):
			case <-ctx.Done():
				results = append(results, Result{Destination: dest.Name, Err: ctx.Err()})
				continue
			}
		}
		text, err := c.Compose(ctx, video, dest)
		results = append(results, Result{Destination: dest.Name, Text: text, Err: err})
	}
	return results
}

// metaPatterns are preambles a model sometimes wraps its answer in despite
// being told not to.
var metaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^(?:Here'?s|Okay,? here'?s|Alright,? here'?s)\s+.*?:?\s*`),
	regexp.MustCompile(`(?im)^(?:Here you go|Sure thing|Certainly).*?:?\s*`),
	regexp.MustCompile(`(?im)^(?:Post|Draft|Output)\s*:?\s*`),
	regexp.MustCompile(`(?m)^"`),
	regexp.MustCompile(`(?m)"$`),
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// finalize cleans the accepted candidate, enforces the character ceiling,
// records it in the dedup cache and appends the canonical link as its own
// trailing block.
func (c *Composer) finalize(text string, video announce.VideoRecord, dest announce.DestinationProfile) string {
	text = c.validator.StripCreatorHashtags(text, video.Creator)
	for _, p := range metaPatterns {
		text = p.ReplaceAllString(text, "")
	}
	text = strings.TrimSpace(urlPattern.ReplaceAllString(text, ""))
	text = trimToBudget(text, dest)

	c.validator.Remember(text)

	if video.URL != "" {
		text += "\n\n" + video.URL
	}
	return text
}

// trimToBudget enforces the destination ceiling at a word boundary. When the
// destination carries tail hashtags, the body is shortened instead so the
// hashtag block survives the cut.
func trimToBudget(text string, dest announce.DestinationProfile) string {
	if len([]rune(text)) <= dest.MaxChars {
		return text
	}

	if dest.Hashtags.Allowed() {
		body, tags := splitTrailingHashtags(text)
		if tags != "" {
			budget := dest.MaxChars - len([]rune(tags)) - 1
			if budget > 0 {
				return guardrail.SafeTrim(body, budget) + " " + tags
			}
		}
	}
	return guardrail.SafeTrim(text, dest.MaxChars)
}

// splitTrailingHashtags peels the run of hashtag tokens off the end of text.
func splitTrailingHashtags(text string) (body, tags string) {
	body = strings.TrimRight(text, " \n\t")
	var collected []string
	for {
		idx := strings.LastIndexAny(body, " \n\t")
		if idx < 0 {
			break
		}
		token := body[idx+1:]
		if len(token) < 2 || !strings.HasPrefix(token, "#") {
			break
		}
		collected = append([]string{token}, collected...)
		body = strings.TrimRight(body[:idx], " \n\t")
	}
	return body, strings.Join(collected, " ")
}
