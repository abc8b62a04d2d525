package domain

import "context"

// JobStatus is the state of a long-running generation job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobHandle is a snapshot of one job's reported state.
type JobHandle struct {
	JobID       string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"` // 0-100
	CurrentStep string    `json:"current_step"`
	Error       string    `json:"error,omitempty"`
}

// JobParams are the inputs for starting a generation job.
type JobParams struct {
	Domain        string `json:"domain"`
	Topic         string `json:"topic"`
	TargetKeyword string `json:"target_keyword"`
	Context       string `json:"context,omitempty"`
}

// PublishResult is returned by publishing a completed job.
type PublishResult struct {
	PreviewURL string `json:"preview_url"`
	PRURL      string `json:"pr_url"`
}

// JobService is the long-running job service client.
type JobService interface {
	Start(ctx context.Context, params JobParams) (string, error)
	Status(ctx context.Context, jobID string) (*JobHandle, error)
	Result(ctx context.Context, jobID string) (map[string]any, error)
	Publish(ctx context.Context, jobID string) (*PublishResult, error)
}
