package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// chatClient is the slice of the OpenAI client the adapter needs.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI generates text through any OpenAI-compatible chat completion
// endpoint. Setting baseURL to an Ollama server's /v1 path runs the same
// adapter against a local model.
type OpenAI struct {
	client chatClient
	name   string
	model  string
}

// NewOpenAI builds a provider for an OpenAI-compatible endpoint. With a
// custom baseURL the apiKey may be a placeholder (local servers ignore it),
// but it must not be empty.
func NewOpenAI(apiKey, model, baseURL string) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	name := "openai"
	if baseURL != "" {
		cfg.BaseURL = baseURL
		name = "openai-compatible"
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		name:   name,
		model:  model,
	}, nil
}

// Name implements Provider.
func (o *OpenAI) Name() string { return o.name }

// Generate implements Provider.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.3,
		TopP:        0.9,
		MaxTokens:   256,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 && apiErr.HTTPStatusCode != 429 {
			return "", &PermanentError{Provider: o.name, Err: err}
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	for _, choice := range resp.Choices {
		if trimmed := strings.TrimSpace(choice.Message.Content); trimmed != "" {
			return trimmed, nil
		}
	}
	return "", ErrNoText
}
