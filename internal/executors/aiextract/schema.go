package aiextract

import (
	"fmt"
	"strings"

	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// normalize cleans up model output the schema doesn't care to reject:
// whitespace and step numbering.
func normalize(r *models.Recipe) {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)

	for i := range r.Ingredients {
		r.Ingredients[i].Name = strings.TrimSpace(r.Ingredients[i].Name)
	}

	// Models number steps inconsistently; the order of the array is the
	// source of truth.
	for i := range r.Instructions {
		r.Instructions[i].StepNumber = i + 1
		r.Instructions[i].Description = strings.TrimSpace(r.Instructions[i].Description)
	}
}

// validate enforces the minimum shape a usable recipe must have.
func validate(r *models.Recipe) error {
	if r.Title == "" {
		return fmt.Errorf("recipe has no title")
	}
	if len(r.Ingredients) == 0 {
		return fmt.Errorf("recipe has no ingredients")
	}
	if len(r.Instructions) == 0 {
		return fmt.Errorf("recipe has no instructions")
	}
	for i, ing := range r.Ingredients {
		if ing.Name == "" {
			return fmt.Errorf("ingredient %d has no name", i+1)
		}
	}
	for _, step := range r.Instructions {
		if step.Description == "" {
			return fmt.Errorf("step %d has no description", step.StepNumber)
		}
	}
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 1 {
		return fmt.Errorf("confidence_score %v is outside [0, 1]", r.ConfidenceScore)
	}
	return nil
}
