package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vixomaix/reel-to-recipe-api/internal/ai/ollama"
	"github.com/vixomaix/reel-to-recipe-api/internal/config"
	"github.com/vixomaix/reel-to-recipe-api/internal/pipeline"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

func TestExtractRecipe(t *testing.T) {
	var gotReq struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{
				"content": `{"title": "Miso Soup", "ingredients": [{"name": "miso"}], "instructions": [{"step_number": 1, "description": "Whisk miso into broth."}], "confidence_score": 0.7}`,
			},
		})
	}))
	defer srv.Close()

	p := ollama.NewProvider(config.OllamaConfig{BaseURL: srv.URL, Model: "llama3"})
	recipe, err := p.ExtractRecipe(context.Background(), models.ExtractionInput{
		OCRText: "miso, dashi",
	})
	require.NoError(t, err)

	assert.Equal(t, "Miso Soup", recipe.Title)
	require.Len(t, recipe.Ingredients, 1)
	assert.Equal(t, "miso", recipe.Ingredients[0].Name)

	assert.Equal(t, "llama3", gotReq.Model)
	assert.False(t, gotReq.Stream)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[1].Content, "miso, dashi")
}

func TestExtractRecipeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := ollama.NewProvider(config.OllamaConfig{BaseURL: srv.URL, Model: "llama3"})
	_, err := p.ExtractRecipe(context.Background(), models.ExtractionInput{})
	require.Error(t, err)
	assert.Equal(t, models.ErrKindUnavailable, pipeline.Classify(err))
}

func TestExtractRecipeConnectionRefused(t *testing.T) {
	p := ollama.NewProvider(config.OllamaConfig{BaseURL: "http://127.0.0.1:1", Model: "llama3"})
	_, err := p.ExtractRecipe(context.Background(), models.ExtractionInput{})
	require.Error(t, err)
	assert.Equal(t, models.ErrKindUnavailable, pipeline.Classify(err))
}
