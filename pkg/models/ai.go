package models

import "context"

// ExtractionInput is everything the AI provider gets to work with: the text
// recovered from the video plus a little metadata for the prompt.
type ExtractionInput struct {
	SourceURL         string
	PreferredLanguage string
	Title             string
	DurationSeconds   float64
	OCRText           string
	Transcript        string
	FrameTexts        []FrameArtifact
}

// AIProvider is the interface every AI integration must implement. Never call
// a specific provider directly — always inject this interface.
type AIProvider interface {
	// ExtractRecipe turns the accumulated text artifacts into a structured
	// recipe. The returned recipe is unvalidated; schema checks belong to
	// the ai-extract executor.
	ExtractRecipe(ctx context.Context, input ExtractionInput) (Recipe, error)
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string
}
