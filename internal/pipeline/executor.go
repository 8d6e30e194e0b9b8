package pipeline

import (
	"context"

	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// Outcome is a stage's successful result: whatever artifacts it produced,
// plus the final recipe if this was the ai-extract stage.
type Outcome struct {
	Artifacts models.Artifacts
	Recipe    *models.Recipe
}

// Executor performs one stage's work. Implementations classify their own
// failures by returning a *StageError; anything else is treated as
// transient. Executors must be re-entrant safe: at-least-once queue delivery
// means Execute can run again for a job the stage already (partially)
// processed, and it must detect that from the job's artifacts rather than
// redo or corrupt work.
type Executor interface {
	Stage() models.Stage
	Execute(ctx context.Context, job *models.Job) (*Outcome, error)
}

// stageSpec wires one stage into the state machine: which statuses it may
// claim a job from, the status it runs under, and where success leads.
type stageSpec struct {
	running   models.JobStatus
	next      models.JobStatus
	nextStage models.Stage // empty for the final stage
	claimFrom []models.JobStatus
}

// Download claims from both pending and downloading: a redelivery after a
// mid-run crash finds the job already marked downloading and must still be
// able to claim it. The later stages run under the status their predecessor
// committed, so claimFrom and running coincide.
var stageSpecs = map[models.Stage]stageSpec{
	models.StageDownload: {
		running:   models.JobStatusDownloading,
		next:      models.JobStatusExtracting,
		nextStage: models.StageMediaExtract,
		claimFrom: []models.JobStatus{models.JobStatusPending, models.JobStatusDownloading},
	},
	models.StageMediaExtract: {
		running:   models.JobStatusExtracting,
		next:      models.JobStatusAnalyzing,
		nextStage: models.StageAIExtract,
		claimFrom: []models.JobStatus{models.JobStatusExtracting},
	},
	models.StageAIExtract: {
		running:   models.JobStatusAnalyzing,
		next:      models.JobStatusCompleted,
		claimFrom: []models.JobStatus{models.JobStatusAnalyzing},
	},
}

func (s stageSpec) claimable(status models.JobStatus) bool {
	for _, from := range s.claimFrom {
		if status == from {
			return true
		}
	}
	return false
}
