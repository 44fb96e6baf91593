package launchprobe

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidState is wrapped by step errors when a step is called out of
// order, such as capturing before the application is ready.
var ErrInvalidState = errors.New("launchprobe: invalid run state")

// ErrIncomplete fails a run that is reported before it reached Attached.
var ErrIncomplete = errors.New("launchprobe: run reported before completion")

// LaunchError reports that the application could not be started, or exited
// before it became ready.
type LaunchError struct {
	Op            string
	Configuration string
	Err           error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launchprobe: %s %q: %v", e.Op, e.Configuration, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that readiness was not observed within the bound.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("launchprobe: await-ready: not ready after %v", e.Timeout)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// CaptureError reports that the application surface was unavailable.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("launchprobe: capture: %v", e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}
