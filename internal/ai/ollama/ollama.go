package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vixomaix/reel-to-recipe-api/internal/ai/chat"
	"github.com/vixomaix/reel-to-recipe-api/internal/config"
	"github.com/vixomaix/reel-to-recipe-api/internal/pipeline"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// Provider implements models.AIProvider against a local Ollama server.
// No client timeout here: local inference on modest hardware can take
// minutes, and the executor already bounds the call with its own context.
type Provider struct {
	cfg    config.OllamaConfig
	client *http.Client
}

func NewProvider(cfg config.OllamaConfig) *Provider {
	return &Provider{cfg: cfg, client: &http.Client{}}
}

func (p *Provider) Name() string { return "ollama" }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func (p *Provider) ExtractRecipe(ctx context.Context, input models.ExtractionInput) (models.Recipe, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: chat.SystemPrompt},
			{Role: "user", Content: chat.BuildUserPrompt(input)},
		},
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return models.Recipe{}, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return models.Recipe{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return models.Recipe{}, pipeline.Errf(models.ErrKindUnavailable, "ollama request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Recipe{}, pipeline.Errf(models.ErrKindTransientIO, "read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.Recipe{}, chat.StatusErr("ollama", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return models.Recipe{}, pipeline.Errf(models.ErrKindTransientIO, "decode ollama envelope: %w", err)
	}

	return chat.ParseRecipe(parsed.Message.Content)
}

var _ models.AIProvider = (*Provider)(nil)
