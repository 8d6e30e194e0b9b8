package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the pipeline state of a job. Transitions are monotonic:
// pending -> downloading -> extracting -> analyzing -> completed, with any
// non-terminal state able to move to cancelling or failed. A job never moves
// backward.
type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusExtracting  JobStatus = "extracting"
	JobStatusAnalyzing   JobStatus = "analyzing"
	JobStatusCancelling  JobStatus = "cancelling"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
)

// statusRank orders statuses along the pipeline. Terminal states rank last so
// "past this stage" checks fall out of a simple comparison.
var statusRank = map[JobStatus]int{
	JobStatusPending:     0,
	JobStatusDownloading: 1,
	JobStatusExtracting:  2,
	JobStatusAnalyzing:   3,
	JobStatusCancelling:  4,
	JobStatusCompleted:   5,
	JobStatusFailed:      5,
}

// statusProgress maps each status to a coarse completion percentage for
// status-polling clients. Cancelling and failed report zero: the pipeline's
// partial work is discarded, not resumable.
var statusProgress = map[JobStatus]int{
	JobStatusPending:     0,
	JobStatusDownloading: 10,
	JobStatusExtracting:  40,
	JobStatusAnalyzing:   80,
	JobStatusCancelling:  0,
	JobStatusCompleted:   100,
	JobStatusFailed:      0,
}

// Progress reports how far along the pipeline the job is, 0-100.
func (s JobStatus) Progress() int {
	return statusProgress[s]
}

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// After reports whether s is strictly further along the pipeline than other.
func (s JobStatus) After(other JobStatus) bool {
	return statusRank[s] > statusRank[other]
}

// Stage identifies one phase of the extraction pipeline.
type Stage string

const (
	StageDownload     Stage = "download"
	StageMediaExtract Stage = "media_extract"
	StageAIExtract    Stage = "ai_extract"
)

// ErrorKind classifies a stage failure. Retryability is decided by kind
// alone, regardless of which stage raised it.
type ErrorKind string

const (
	ErrKindTransientIO       ErrorKind = "TransientIO"
	ErrKindResourceExhausted ErrorKind = "ResourceExhausted"
	ErrKindInvalidInput      ErrorKind = "InvalidInput"
	ErrKindSchemaInvalid     ErrorKind = "SchemaInvalid"
	ErrKindUnavailable       ErrorKind = "Unavailable"
	ErrKindCancelled         ErrorKind = "Cancelled"
)

// Retryable reports whether a failure of this kind may be retried.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrKindTransientIO, ErrKindResourceExhausted, ErrKindUnavailable:
		return true
	default:
		return false
	}
}

// JobError records why a job failed. Present only when status is failed.
type JobError struct {
	Stage   Stage     `json:"stage"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// FrameArtifact is one extracted video frame, with any OCR text recovered
// from it.
type FrameArtifact struct {
	TimestampSeconds float64 `json:"timestamp_seconds"`
	FramePath        string  `json:"frame_path"`
	OCRText          string  `json:"ocr_text,omitempty"`
	IsKeyframe       bool    `json:"is_keyframe,omitempty"`
}

// DownloadArtifact is the output of the download stage.
type DownloadArtifact struct {
	VideoPath       string  `json:"video_path"`
	Title           string  `json:"title,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// MediaArtifact is the output of the media-extract stage.
type MediaArtifact struct {
	Frames     []FrameArtifact `json:"frames,omitempty"`
	AudioPath  string          `json:"audio_path,omitempty"`
	OCRText    string          `json:"ocr_text,omitempty"`
	Transcript string          `json:"transcript,omitempty"`
}

// Artifacts accumulates per-stage outputs. Each field is written by exactly
// one stage and is append-only: once set it is never overwritten.
type Artifacts struct {
	Download *DownloadArtifact `json:"download,omitempty"`
	Media    *MediaArtifact    `json:"media,omitempty"`
}

// Merge returns a copy of a with any artifacts from b that a does not already
// carry. Existing artifacts win, so a stage re-run can never clobber a prior
// durable result.
func (a Artifacts) Merge(b Artifacts) Artifacts {
	out := a
	if out.Download == nil {
		out.Download = b.Download
	}
	if out.Media == nil {
		out.Media = b.Media
	}
	return out
}

// Job is one end-to-end request to extract a recipe from one video URL.
// Mutated only through the store's optimistic Update contract.
type Job struct {
	ID                uuid.UUID     `db:"id"                 json:"id"`
	SourceURL         string        `db:"source_url"         json:"source_url"`
	Platform          string        `db:"platform"           json:"platform"`
	PreferredLanguage string        `db:"preferred_language" json:"preferred_language,omitempty"`
	Status            JobStatus     `db:"status"             json:"status"`
	StageAttempts     map[Stage]int `db:"stage_attempts"     json:"stage_attempts"`
	Artifacts         Artifacts     `db:"artifacts"          json:"artifacts"`
	Error             *JobError     `db:"error"              json:"error,omitempty"`
	CreatedAt         time.Time     `db:"created_at"         json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at"         json:"updated_at"`
	CompletedAt       *time.Time    `db:"completed_at"       json:"completed_at,omitempty"`
}

// Attempts returns the attempt count recorded for a stage.
func (j *Job) Attempts(stage Stage) int {
	if j.StageAttempts == nil {
		return 0
	}
	return j.StageAttempts[stage]
}

// BumpAttempt increments the attempt counter for a stage and returns the new
// count.
func (j *Job) BumpAttempt(stage Stage) int {
	if j.StageAttempts == nil {
		j.StageAttempts = make(map[Stage]int)
	}
	j.StageAttempts[stage]++
	return j.StageAttempts[stage]
}

// Clone returns a deep copy of the job. The store hands out clones so callers
// can mutate freely before committing through Update.
func (j *Job) Clone() *Job {
	cp := *j
	if j.StageAttempts != nil {
		cp.StageAttempts = make(map[Stage]int, len(j.StageAttempts))
		for k, v := range j.StageAttempts {
			cp.StageAttempts[k] = v
		}
	}
	if j.Error != nil {
		e := *j.Error
		cp.Error = &e
	}
	if j.Artifacts.Download != nil {
		d := *j.Artifacts.Download
		cp.Artifacts.Download = &d
	}
	if j.Artifacts.Media != nil {
		m := *j.Artifacts.Media
		if m.Frames != nil {
			m.Frames = append([]FrameArtifact(nil), m.Frames...)
		}
		cp.Artifacts.Media = &m
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
