package models

import (
	"time"

	"github.com/google/uuid"
)

// Ingredient is one recipe ingredient. Quantity and unit stay free-form
// strings ("1/2", "3-4", "cups") because that is what short-form videos give
// us.
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Optional bool   `json:"optional,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Instruction is one ordered recipe step, optionally anchored to a span of
// the source video.
type Instruction struct {
	StepNumber     int      `json:"step_number"`
	Description    string   `json:"description"`
	TimestampStart *float64 `json:"timestamp_start,omitempty"`
	TimestampEnd   *float64 `json:"timestamp_end,omitempty"`
}

// Recipe is the final artifact of a completed job. Produced once by the
// ai-extract stage and immutable after creation.
type Recipe struct {
	JobID           uuid.UUID     `db:"job_id"            json:"job_id"`
	Title           string        `db:"title"             json:"title"`
	Description     string        `db:"description"       json:"description,omitempty"`
	Ingredients     []Ingredient  `db:"ingredients"       json:"ingredients"`
	Instructions    []Instruction `db:"instructions"      json:"instructions"`
	CookTimeMinutes *int          `db:"cook_time_minutes" json:"cook_time_minutes,omitempty"`
	PrepTimeMinutes *int          `db:"prep_time_minutes" json:"prep_time_minutes,omitempty"`
	Servings        *int          `db:"servings"          json:"servings,omitempty"`
	Difficulty      string        `db:"difficulty"        json:"difficulty,omitempty"`
	Tags            []string      `db:"tags"              json:"tags,omitempty"`
	SourceURL       string        `db:"source_url"        json:"source_url"`
	ConfidenceScore float64       `db:"confidence_score"  json:"confidence_score"`
	CreatedAt       time.Time     `db:"created_at"        json:"created_at"`
}
