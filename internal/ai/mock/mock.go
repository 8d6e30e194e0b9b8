package mock

import (
	"context"
	"time"

	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// Provider satisfies models.AIProvider without any network calls. It is
// both the test double and a real config choice (AI_PROVIDER=mock) for
// running the full pipeline in development without an inference backend.
type Provider struct {
	Name_       string
	ExtractFunc func(ctx context.Context, input models.ExtractionInput) (models.Recipe, error)
}

func (m *Provider) Name() string {
	if m.Name_ == "" {
		return "mock"
	}
	return m.Name_
}

func (m *Provider) ExtractRecipe(ctx context.Context, input models.ExtractionInput) (models.Recipe, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, input)
	}
	return DefaultRecipe(input), nil
}

// NewProvider returns a Provider with a deterministic default recipe.
func NewProvider() *Provider {
	return &Provider{Name_: "mock"}
}

// NewFailingProvider returns a Provider that always returns the given error.
func NewFailingProvider(err error) *Provider {
	return &Provider{
		Name_: "mock-failing",
		ExtractFunc: func(_ context.Context, _ models.ExtractionInput) (models.Recipe, error) {
			return models.Recipe{}, err
		},
	}
}

// DefaultRecipe is the fixed recipe the default mock returns. Stable values
// so end-to-end tests can assert on them.
func DefaultRecipe(input models.ExtractionInput) models.Recipe {
	cookTime := 15
	prepTime := 10
	servings := 2
	title := input.Title
	if title == "" {
		title = "Garlic Butter Pasta"
	}
	start := 2.5
	end := 8.0
	return models.Recipe{
		Title:       title,
		Description: "A quick weeknight pasta from a short cooking video.",
		Ingredients: []models.Ingredient{
			{Name: "spaghetti", Quantity: "200", Unit: "g"},
			{Name: "butter", Quantity: "3", Unit: "tbsp"},
			{Name: "garlic", Quantity: "4", Unit: "cloves"},
			{Name: "parsley", Quantity: "1", Unit: "handful", Optional: true},
		},
		Instructions: []models.Instruction{
			{StepNumber: 1, Description: "Cook the spaghetti until al dente.", TimestampStart: &start},
			{StepNumber: 2, Description: "Melt butter and fry the garlic until fragrant.", TimestampEnd: &end},
			{StepNumber: 3, Description: "Toss the pasta in the garlic butter and top with parsley."},
		},
		CookTimeMinutes: &cookTime,
		PrepTimeMinutes: &prepTime,
		Servings:        &servings,
		Difficulty:      "easy",
		Tags:            []string{"pasta", "quick"},
		ConfidenceScore: 0.94,
		CreatedAt:       time.Now().UTC(),
	}
}

var _ models.AIProvider = (*Provider)(nil)
