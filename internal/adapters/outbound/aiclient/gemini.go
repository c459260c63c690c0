package aiclient

import (
	"context"
	"fmt"

	genai "google.golang.org/genai"
)

// Gemini wraps the official genai client. Responses are requested as
// application/json so the model skips the markdown packaging.
type Gemini struct {
	cli       *genai.Client
	model     string
	maxTokens int
}

func NewGemini(ctx context.Context, apiKey, model string, maxTokens int) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{cli: cli, model: model, maxTokens: maxTokens}, nil
}

func (g *Gemini) Name() string { return "gemini:" + g.model }

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.maxTokens)
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from %s", g.model)
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
