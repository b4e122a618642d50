package report

import "time"

// Step statuses recorded on StepResult.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// StepResult captures the outcome of a single pipeline step.
type StepResult struct {
	StepName   string        `json:"step_name"`
	Uses       string        `json:"uses,omitempty"`
	Run        string        `json:"run,omitempty"`
	Status     string        `json:"status"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	Stdout     string        `json:"stdout,omitempty"`
	Stderr     string        `json:"stderr,omitempty"`
	ExitCode   int           `json:"exit_code"`
	DryRun     bool          `json:"dry_run"`
}

// Summary aggregates pipeline execution results.
type Summary struct {
	Pipeline   string        `json:"pipeline"`
	TotalSteps int           `json:"total_steps"`
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Cancelled  bool          `json:"cancelled,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	ExitCode   int           `json:"exit_code"`
}
