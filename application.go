package launchprobe

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Launcher starts instances of the target application.
type Launcher interface {
	// Launch starts a new instance configured for cfg. The instance must
	// outlive ctx; ctx only bounds the start itself.
	Launch(ctx context.Context, cfg Configuration) (Application, error)
}

// Application is one running instance of the target application.
type Application interface {
	// WaitReady blocks until the instance is stable and interactive. It
	// returns ctx.Err() (possibly wrapped) when ctx is done first.
	WaitReady(ctx context.Context) error

	// Capture snapshots the current surface.
	Capture(ctx context.Context) (Surface, error)

	// Terminate stops the instance and releases its resources. It is called
	// exactly once per instance, including instances that already exited.
	Terminate(ctx context.Context) error
}

// ApplicationHandle is an opaque handle to the instance launched for one run.
type ApplicationHandle struct {
	// ID uniquely identifies the handle; it differs for every launch.
	ID string

	// RunID is the ID of the owning TestRun.
	RunID string

	// LaunchedAt is when the instance finished starting.
	LaunchedAt time.Time

	run *TestRun
	app Application

	once        sync.Once
	teardownErr error
}

func newHandle(run *TestRun, app Application, at time.Time) *ApplicationHandle {
	return &ApplicationHandle{
		ID:         uuid.NewString(),
		RunID:      run.ID,
		LaunchedAt: at,
		run:        run,
		app:        app,
	}
}

// terminate stops the instance at most once and returns the first result.
func (h *ApplicationHandle) terminate(ctx context.Context) error {
	h.once.Do(func() {
		h.teardownErr = h.app.Terminate(ctx)
	})
	return h.teardownErr
}

// ReadyState describes an observed ready instance.
type ReadyState struct {
	HandleID string
	ReadyAt  time.Time
	Elapsed  time.Duration
}
