// Package chat holds the provider-agnostic pieces of chat-style recipe
// extraction: the prompt, the response parsing, and HTTP status
// classification. The provider packages only handle transport.
package chat

import (
	"fmt"
	"strings"

	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// SystemPrompt is shared by every chat-style provider. The schema in the
// prompt mirrors models.Recipe's JSON shape exactly; keep them in sync.
const SystemPrompt = `You are a culinary assistant that extracts structured recipes from the text recovered from short cooking videos. The text comes from on-screen captions (OCR) and spoken narration (transcript); both are noisy and may repeat or contradict each other.

Respond with a single JSON object and nothing else, using this schema:
{
  "title": "string",
  "description": "string",
  "ingredients": [{"name": "string", "quantity": "string", "unit": "string", "optional": false, "notes": "string"}],
  "instructions": [{"step_number": 1, "description": "string", "timestamp_start": null, "timestamp_end": null}],
  "cook_time_minutes": null,
  "prep_time_minutes": null,
  "servings": null,
  "difficulty": "easy|medium|hard",
  "tags": ["string"],
  "confidence_score": 0.0
}

Rules:
- Only include ingredients and steps actually present in the text. Do not invent.
- confidence_score reflects how completely the text supports the recipe, 0.0 to 1.0.
- If a field is unknown, use null for numbers and omit or empty-string for text.`

// BuildUserPrompt renders the extraction input into the user message.
func BuildUserPrompt(input models.ExtractionInput) string {
	var b strings.Builder
	if input.Title != "" {
		fmt.Fprintf(&b, "Video title: %s\n", input.Title)
	}
	if input.DurationSeconds > 0 {
		fmt.Fprintf(&b, "Video duration: %.0f seconds\n", input.DurationSeconds)
	}
	if input.PreferredLanguage != "" {
		fmt.Fprintf(&b, "Respond in language: %s\n", input.PreferredLanguage)
	}

	b.WriteString("\n--- On-screen text (OCR) ---\n")
	if input.OCRText != "" {
		b.WriteString(input.OCRText)
	} else {
		b.WriteString("(none)")
	}

	b.WriteString("\n\n--- Spoken narration (transcript) ---\n")
	if input.Transcript != "" {
		b.WriteString(input.Transcript)
	} else {
		b.WriteString("(none)")
	}

	// Per-frame timestamps let the model anchor steps to the video.
	var stamped []string
	for _, f := range input.FrameTexts {
		if f.OCRText != "" {
			stamped = append(stamped, fmt.Sprintf("[%.1fs] %s", f.TimestampSeconds, f.OCRText))
		}
	}
	if len(stamped) > 0 {
		b.WriteString("\n\n--- Timestamped frame text ---\n")
		b.WriteString(strings.Join(stamped, "\n"))
	}

	b.WriteString("\n\nExtract the recipe as JSON.")
	return b.String()
}
