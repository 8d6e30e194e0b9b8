package aiextract

import (
	"context"
	"log/slog"
	"time"

	"github.com/vixomaix/reel-to-recipe-api/internal/pipeline"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// Executor turns the text recovered from the video into a structured recipe
// through an AI provider, then enforces the recipe schema. Provider output
// that fails schema validation is a terminal failure: retrying the same
// input through the same model just burns tokens.
type Executor struct {
	provider models.AIProvider
	timeout  time.Duration
	logger   *slog.Logger
}

func New(provider models.AIProvider, timeout time.Duration, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Executor{provider: provider, timeout: timeout, logger: logger}
}

func (e *Executor) Stage() models.Stage { return models.StageAIExtract }

func (e *Executor) Execute(ctx context.Context, job *models.Job) (*pipeline.Outcome, error) {
	media := job.Artifacts.Media
	if media == nil {
		return nil, pipeline.Errf(models.ErrKindInvalidInput, "no media artifact for job %s", job.ID)
	}

	input := models.ExtractionInput{
		SourceURL:         job.SourceURL,
		PreferredLanguage: job.PreferredLanguage,
		OCRText:           media.OCRText,
		Transcript:        media.Transcript,
		FrameTexts:        media.Frames,
	}
	if dl := job.Artifacts.Download; dl != nil {
		input.Title = dl.Title
		input.DurationSeconds = dl.DurationSeconds
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	recipe, err := e.provider.ExtractRecipe(ctx, input)
	if err != nil {
		return nil, err
	}

	recipe.JobID = job.ID
	recipe.SourceURL = job.SourceURL
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = time.Now().UTC()
	}
	normalize(&recipe)

	if err := validate(&recipe); err != nil {
		return nil, pipeline.WrapErr(models.ErrKindSchemaInvalid, err)
	}

	e.logger.Info("recipe extracted",
		"job_id", job.ID,
		"provider", e.provider.Name(),
		"ingredients", len(recipe.Ingredients),
		"steps", len(recipe.Instructions),
		"confidence", recipe.ConfidenceScore,
	)
	return &pipeline.Outcome{Recipe: &recipe}, nil
}
