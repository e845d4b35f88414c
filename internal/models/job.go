package models

import "time"

// JobStatus tracks an asynchronous submission.
type JobStatus string

const (
	JobStatusQueued          JobStatus = "queued"
	JobStatusRunning         JobStatus = "running"
	JobStatusCompleted       JobStatus = "completed"
	JobStatusFailed          JobStatus = "failed"
	JobStatusStillProcessing JobStatus = "still_processing"
)

// SubmissionJob is the progress record of a queued analysis submission.
type SubmissionJob struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Query     string           `json:"query"`
	Status    JobStatus        `json:"status"`
	Progress  int              `json:"progress"`
	Message   string           `json:"message"`
	Session   *SessionAnalysis `json:"session,omitempty"`
	Card      *AnalysisCard    `json:"card,omitempty"`
	ErrorCode string           `json:"error_code,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Terminal reports whether the job will not change any more.
func (j *SubmissionJob) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusStillProcessing:
		return true
	default:
		return false
	}
}
