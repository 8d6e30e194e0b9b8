// Package ai constructs the configured AI provider. The shared prompt and
// parsing live in the chat subpackage; each provider subpackage only does
// transport.
package ai

import (
	"fmt"

	"github.com/vixomaix/reel-to-recipe-api/internal/ai/anthropic"
	"github.com/vixomaix/reel-to-recipe-api/internal/ai/mock"
	"github.com/vixomaix/reel-to-recipe-api/internal/ai/ollama"
	"github.com/vixomaix/reel-to-recipe-api/internal/ai/openai"
	"github.com/vixomaix/reel-to-recipe-api/internal/config"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// NewProvider constructs the appropriate AI provider based on config.
// Called once at server startup.
func NewProvider(cfg config.AIConfig) (models.AIProvider, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewProvider(cfg.Ollama), nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic), nil
	case "mock":
		return mock.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of ollama, openai, anthropic, mock", cfg.Provider)
	}
}
