package launchprobe

import (
	"context"
	"time"
)

// Status is the outcome of a run.
type Status string

// Run outcomes.
const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// RunResult is the finalized record of one TestRun.
type RunResult struct {
	RunID         string
	Configuration Configuration
	Status        Status
	FinalState    State

	// Err is the step error that failed the run, nil when it passed.
	Err error

	// Attachments holds exactly one "Launch Screen" attachment for a passing
	// run and none for a failed one.
	Attachments []Attachment

	StartedAt time.Time
	Duration  time.Duration

	// TeardownErr records a failure to terminate the application. It does
	// not change Status.
	TeardownErr error
}

// Passed reports whether the run passed.
func (r *RunResult) Passed() bool {
	return r.Status == StatusPassed
}

// Sink receives finalized results. The probe calls it once per run, after
// teardown, from the goroutine that called Report.
type Sink interface {
	Report(ctx context.Context, res *RunResult) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, res *RunResult) error

// Report calls f(ctx, res).
func (f SinkFunc) Report(ctx context.Context, res *RunResult) error {
	return f(ctx, res)
}
