package types

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job tracks one asynchronous document-processing request.
type Job struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Status     JobStatus `json:"status"`
	Message    string    `json:"message,omitempty"`
	Progress   float64   `json:"progress"`
	DocumentID string    `json:"document_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// JobUpdate is the payload pushed to websocket subscribers as a job
// moves through its lifecycle.
type JobUpdate struct {
	JobID    string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Message  string    `json:"message,omitempty"`
	Progress float64   `json:"progress"`
}
