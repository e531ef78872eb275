package domain

import "time"

// RunKind identifies the pipeline executed by a run.
type RunKind string

const (
	RunKindCheck  RunKind = "check"
	RunKindReport RunKind = "report"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunSnapshot is the externally visible state of a run.
type RunSnapshot struct {
	RunID       string     `json:"run_id"`
	Kind        RunKind    `json:"kind"`
	Status      RunStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Outputs     []string   `json:"outputs,omitempty"`
}

// IsTerminal reports whether the run has finished.
func (s RunSnapshot) IsTerminal() bool {
	return s.Status == RunStatusCompleted || s.Status == RunStatusFailed
}

// Result is what a pipeline hands back after a successful run.
type Result struct {
	Message string   `json:"message"`
	Files   []string `json:"files"`
}
