package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeGenerator) GenerateContent(context.Context, ...genai.Part) (*genai.GenerateContentResponse, error) {
	return f.resp, f.err
}

func geminiResponse(texts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, text := range texts {
		content.Parts = append(content.Parts, genai.Text(text))
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content}},
	}
}

func TestGeminiGenerate(t *testing.T) {
	g := &Gemini{generator: &fakeGenerator{resp: geminiResponse("  New upload is live!  ")}}

	got, err := g.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "New upload is live!" {
		t.Errorf("Generate() = %q", got)
	}
}

func TestGeminiGenerateSkipsEmptyParts(t *testing.T) {
	g := &Gemini{generator: &fakeGenerator{resp: geminiResponse("   ", "second part")}}

	got, err := g.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "second part" {
		t.Errorf("Generate() = %q, want %q", got, "second part")
	}
}

func TestGeminiGenerateNoCandidates(t *testing.T) {
	g := &Gemini{generator: &fakeGenerator{resp: &genai.GenerateContentResponse{}}}

	if _, err := g.Generate(context.Background(), "prompt"); !errors.Is(err, ErrNoText) {
		t.Errorf("Generate() error = %v, want ErrNoText", err)
	}
}

func TestGeminiGeneratePropagatesError(t *testing.T) {
	g := &Gemini{generator: &fakeGenerator{err: errors.New("503 overloaded")}}

	if _, err := g.Generate(context.Background(), "prompt"); err == nil {
		t.Error("Generate() should propagate generator errors")
	}
}

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), "   ", ""); err == nil {
		t.Error("NewGemini with blank key should fail")
	}
}
