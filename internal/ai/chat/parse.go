package chat

import (
	"encoding/json"
	"strings"

	"github.com/vixomaix/reel-to-recipe-api/internal/pipeline"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// ParseRecipe decodes a model's chat response into a Recipe. Models wrap
// JSON in markdown fences or chat filler no matter how firmly the prompt
// forbids it, so this scans for the outermost object before decoding.
// Undecodable output is a schema failure, not a transport one: the same
// prompt will get the same garbage back.
func ParseRecipe(content string) (models.Recipe, error) {
	raw := extractJSON(content)
	if raw == "" {
		return models.Recipe{}, pipeline.Errf(models.ErrKindSchemaInvalid,
			"no JSON object in model response")
	}

	var recipe models.Recipe
	if err := json.Unmarshal([]byte(raw), &recipe); err != nil {
		return models.Recipe{}, pipeline.Errf(models.ErrKindSchemaInvalid,
			"decode model response: %w", err)
	}
	return recipe, nil
}

func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if fenced, ok := strings.CutPrefix(content, "```json"); ok {
		content = fenced
	} else if fenced, ok := strings.CutPrefix(content, "```"); ok {
		content = fenced
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
