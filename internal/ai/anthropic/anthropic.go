package anthropic

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

const (
	endpoint   = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	maxTokens  = 4096
)

// Provider implements models.AIProvider against the Anthropic messages API.
type Provider struct {
	cfg    config.AnthropicConfig
	client *http.Client
}

func NewProvider(cfg config.AnthropicConfig) *Provider {
	return &Provider{cfg: cfg, client: &http.Client{Timeout: 2 * time.Minute}}
}

func (p *Provider) Name() string { return "anthropic" }

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *Provider) ExtractRecipe(ctx context.Context, input models.ExtractionInput) (models.Recipe, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     p.cfg.Model,
		MaxTokens: maxTokens,
		System:    chat.SystemPrompt,
		Messages:  []message{{Role: "user", Content: chat.BuildUserPrompt(input)}},
	})
	if err != nil {
		return models.Recipe{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return models.Recipe{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return models.Recipe{}, pipeline.Errf(models.ErrKindTransientIO, "anthropic request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Recipe{}, pipeline.Errf(models.ErrKindTransientIO, "read anthropic response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.Recipe{}, chat.StatusErr("anthropic", resp.StatusCode, string(raw))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return models.Recipe{}, pipeline.Errf(models.ErrKindTransientIO, "decode anthropic envelope: %w", err)
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return models.Recipe{}, pipeline.Errf(models.ErrKindUnavailable, "anthropic returned no text content")
	}

	return chat.ParseRecipe(text)
}

var _ models.AIProvider = (*Provider)(nil)
