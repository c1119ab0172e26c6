package models

import "time"

// RunStatus is the lifecycle state of a reconciliation run.
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
	RunCancelled RunStatus = "CANCELLED"
)

// RunCounts maps every statement entry to exactly one outcome.
type RunCounts struct {
	Entries      int `yaml:"entries"`
	ParseErrors  int `yaml:"parse_errors"`
	Exact        int `yaml:"exact"`
	Fuzzy        int `yaml:"fuzzy"`
	Ambiguous    int `yaml:"ambiguous"`
	Unmatched    int `yaml:"unmatched"`
	LookupFailed int `yaml:"lookup_failed"`
}

// ReconciliationRun records the metadata of one reconciliation execution.
// It is created when processing starts and becomes immutable once finalized.
type ReconciliationRun struct {
	ID          string    `yaml:"id"`
	Source      string    `yaml:"source"`
	StartedAt   time.Time `yaml:"started_at"`
	FinalizedAt time.Time `yaml:"finalized_at,omitempty"`
	Status      RunStatus `yaml:"status"`
	Counts      RunCounts `yaml:"counts"`
}

// Finalized reports whether the run has reached a terminal state.
func (r *ReconciliationRun) Finalized() bool {
	return r.Status != RunRunning
}

// Finalize closes the run with the given status and counts.
func (r *ReconciliationRun) Finalize(status RunStatus, counts RunCounts, at time.Time) {
	r.Status = status
	r.Counts = counts
	r.FinalizedAt = at
}
