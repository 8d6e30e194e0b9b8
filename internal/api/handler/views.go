package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// JobView is the job shape the API exposes. Internal bookkeeping like stage
// attempt counters and artifact file paths stays out of it.
type JobView struct {
	ID          string            `json:"job_id"`
	SourceURL   string            `json:"source_url,omitempty"`
	Platform    string            `json:"platform,omitempty"`
	Status      models.JobStatus  `json:"status"`
	Progress    int               `json:"progress"`
	Error       *models.JobError  `json:"error,omitempty"`
	CreatedAt   *time.Time        `json:"created_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

func jobView(j *models.Job) JobView {
	v := JobView{
		ID:          j.ID.String(),
		SourceURL:   j.SourceURL,
		Platform:    j.Platform,
		Status:      j.Status,
		Progress:    j.Status.Progress(),
		Error:       j.Error,
		CompletedAt: j.CompletedAt,
	}
	if !j.CreatedAt.IsZero() {
		t := j.CreatedAt
		v.CreatedAt = &t
	}
	return v
}

func pagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}
