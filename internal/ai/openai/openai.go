package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vixomaix/reel-to-recipe-api/internal/ai/chat"
	"github.com/vixomaix/reel-to-recipe-api/internal/config"
	"github.com/vixomaix/reel-to-recipe-api/internal/pipeline"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

const endpoint = "https://api.openai.com/v1/chat/completions"

// Provider implements models.AIProvider against the OpenAI chat completions
// API.
type Provider struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	return &Provider{cfg: cfg, client: &http.Client{Timeout: 2 * time.Minute}}
}

func (p *Provider) Name() string { return "openai" }

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *Provider) ExtractRecipe(ctx context.Context, input models.ExtractionInput) (models.Recipe, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: chat.SystemPrompt},
			{Role: "user", Content: chat.BuildUserPrompt(input)},
		},
		Temperature:    0.1,
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return models.Recipe{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return models.Recipe{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return models.Recipe{}, pipeline.Errf(models.ErrKindTransientIO, "openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Recipe{}, pipeline.Errf(models.ErrKindTransientIO, "read openai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.Recipe{}, chat.StatusErr("openai", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return models.Recipe{}, pipeline.Errf(models.ErrKindTransientIO, "decode openai envelope: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return models.Recipe{}, pipeline.Errf(models.ErrKindUnavailable, "openai returned no choices")
	}

	return chat.ParseRecipe(parsed.Choices[0].Message.Content)
}

var _ models.AIProvider = (*Provider)(nil)
