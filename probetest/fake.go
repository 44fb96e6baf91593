package probetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/cboone/launchprobe"
)

// Fake is a scriptable Launcher for tests. The zero value launches
// applications that are ready immediately and capture DefaultSurface.
// Fake is safe for concurrent use.
type Fake struct {
	// LaunchErr, when set, is returned by every Launch.
	LaunchErr error

	// NeverReady makes WaitReady block until its context is done.
	NeverReady bool

	// ExitBeforeReady makes WaitReady fail with ExitErr as if the
	// application exited during startup.
	ExitBeforeReady bool
	ExitErr         error

	// CaptureErr, when set, is returned by every Capture.
	CaptureErr error

	// Surface overrides DefaultSurface.
	Surface *launchprobe.Surface

	// TerminateErr, when set, is returned by every Terminate.
	TerminateErr error

	mu   sync.Mutex
	apps []*FakeApp
}

// DefaultSurface is captured by a Fake with no Surface configured.
var DefaultSurface = launchprobe.Surface{
	ContentType: launchprobe.ContentTypeText,
	Data:        []byte("Sign in with Apple\nSign in with Google\n"),
	Width:       80,
	Height:      24,
}

var _ launchprobe.Launcher = (*Fake)(nil)

// Launch implements launchprobe.Launcher.
func (f *Fake) Launch(ctx context.Context, cfg launchprobe.Configuration) (launchprobe.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.LaunchErr != nil {
		return nil, f.LaunchErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	app := &FakeApp{fake: f, Config: cfg, Seq: len(f.apps) + 1}
	f.apps = append(f.apps, app)
	return app, nil
}

// Apps returns the applications launched so far, oldest first.
func (f *Fake) Apps() []*FakeApp {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]*FakeApp, len(f.apps))
	copy(cp, f.apps)
	return cp
}

// Running returns how many launched applications have not been terminated.
func (f *Fake) Running() int {
	n := 0
	for _, app := range f.Apps() {
		if app.Terminations() == 0 {
			n++
		}
	}
	return n
}

// FakeApp is an application launched by a Fake.
type FakeApp struct {
	Config launchprobe.Configuration
	Seq    int

	fake *Fake

	mu           sync.Mutex
	waited       bool
	captures     int
	terminations int
}

// WaitReady implements launchprobe.Application.
func (a *FakeApp) WaitReady(ctx context.Context) error {
	a.mu.Lock()
	a.waited = true
	a.mu.Unlock()

	switch {
	case a.fake.ExitBeforeReady:
		err := a.fake.ExitErr
		if err == nil {
			err = fmt.Errorf("process exited unexpectedly (status 1)")
		}
		return err
	case a.fake.NeverReady:
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

// Capture implements launchprobe.Application.
func (a *FakeApp) Capture(ctx context.Context) (launchprobe.Surface, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.captures++
	if a.terminations > 0 {
		return launchprobe.Surface{}, fmt.Errorf("application %d already terminated", a.Seq)
	}
	if a.fake.CaptureErr != nil {
		return launchprobe.Surface{}, a.fake.CaptureErr
	}
	if a.fake.Surface != nil {
		return *a.fake.Surface, nil
	}
	return DefaultSurface, nil
}

// Terminate implements launchprobe.Application.
func (a *FakeApp) Terminate(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.terminations++
	return a.fake.TerminateErr
}

// Waited reports whether WaitReady was called.
func (a *FakeApp) Waited() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.waited
}

// Captures returns how many times Capture was called.
func (a *FakeApp) Captures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.captures
}

// Terminations returns how many times Terminate was called.
func (a *FakeApp) Terminations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.terminations
}
