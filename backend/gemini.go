package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash-lite"

// contentGenerator is the slice of the genai model the adapter needs,
// kept small so tests can substitute it.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gemini generates text through the Google Gemini API.
type Gemini struct {
	generator contentGenerator
	closeFn   func() error
	model     string
}

// NewGemini builds a Gemini provider. modelName may be empty to use the
// default. The returned provider must be closed when the process shuts down.
func NewGemini(ctx context.Context, apiKey, modelName string, extraOpts ...option.ClientOption) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}

	opts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, extraOpts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	if modelName == "" {
		modelName = defaultGeminiModel
	}
	model := client.GenerativeModel(modelName)
	model.SetCandidateCount(1)
	model.SetMaxOutputTokens(256)
	model.SetTemperature(0.3)
	model.SetTopP(0.9)

	return &Gemini{
		generator: model,
		closeFn:   client.Close,
		model:     modelName,
	}, nil
}

// Name implements Provider.
func (g *Gemini) Name() string { return "gemini" }

// Close releases the underlying client connection.
func (g *Gemini) Close() error {
	if g == nil || g.closeFn == nil {
		return nil
	}
	return g.closeFn()
}

// Generate implements Provider.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.generator.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return firstGeminiText(resp)
}

// firstGeminiText picks the first non-empty text part out of the response
// candidates.
func firstGeminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrNoText
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				if trimmed := strings.TrimSpace(string(text)); trimmed != "" {
					return trimmed, nil
				}
			}
		}
	}
	return "", ErrNoText
}
