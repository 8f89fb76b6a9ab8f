package domain

import "time"

// JobStatus represents the state of a batch enhancement job.
type JobStatus string

// Job states.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// EnhanceJob refines every candidate of a project one at a time.
type EnhanceJob struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Instruction string    `json:"instruction"`
	Status      JobStatus `json:"status"`

	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`

	Error string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Active reports whether the job has not finished.
func (j *EnhanceJob) Active() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusRunning
}

// Progress returns the share of processed candidates, 0-100.
func (j *EnhanceJob) Progress() int {
	if j.Total == 0 {
		return 0
	}
	return (j.Completed + j.Failed) * 100 / j.Total
}

// MarkRunning transitions the job to running.
func (j *EnhanceJob) MarkRunning() {
	j.Status = JobStatusRunning
	now := time.Now()
	j.StartedAt = &now
}

// MarkCompleted transitions the job to completed.
func (j *EnhanceJob) MarkCompleted() {
	j.finish(JobStatusCompleted, "")
}

// MarkFailed transitions the job to failed with a user-facing reason.
func (j *EnhanceJob) MarkFailed(reason string) {
	j.finish(JobStatusFailed, reason)
}

// MarkCancelled transitions the job to cancelled.
func (j *EnhanceJob) MarkCancelled() {
	j.finish(JobStatusCancelled, "")
}

func (j *EnhanceJob) finish(status JobStatus, reason string) {
	j.Status = status
	j.Error = reason
	now := time.Now()
	j.CompletedAt = &now
}
