package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/edgard/mediadesk/internal/config"
)

// geminiBackend calls the Gemini API through the genai SDK.
type geminiBackend struct {
	client *genai.Client
	model  string
}

func newGeminiBackend(ctx context.Context, cfg config.AIConfig) (*geminiBackend, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	// The OpenRouter default is meaningless here; only a non-default URL
	// points the SDK elsewhere.
	if cfg.BaseURL != "" && cfg.BaseURL != config.DefaultOpenAIBaseURL {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	gi, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &geminiBackend{client: gi, model: cfg.Model}, nil
}

func (b *geminiBackend) name() string { return "gemini" }

func (b *geminiBackend) complete(ctx context.Context, req Request) (string, error) {
	temperature := req.Temperature
	genCfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.SystemInstruction != "" {
		genCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(req.UserPrompt), genCfg)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errNoChoices
	}
	return resp.Text(), nil
}
