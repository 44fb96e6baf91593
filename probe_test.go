package launchprobe_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cboone/launchprobe"
	"github.com/cboone/launchprobe/probetest"
)

func newProbe(t *testing.T, l launchprobe.Launcher, opts ...launchprobe.Option) *launchprobe.Probe {
	t.Helper()
	all := append([]launchprobe.Option{launchprobe.WithLogger(zaptest.NewLogger(t))}, opts...)
	return launchprobe.New(l, all...)
}

func TestRunPasses(t *testing.T) {
	fake := &probetest.Fake{}
	probe := newProbe(t, fake)

	res := probe.Run(context.Background(), launchprobe.Configuration{Name: "light"})

	require.True(t, res.Passed(), "run failed: %v", res.Err)
	assert.Equal(t, launchprobe.StateReported, res.FinalState)
	assert.NoError(t, res.Err)
	assert.NoError(t, res.TeardownErr)
	assert.Equal(t, "light", res.Configuration.Name)

	require.Len(t, res.Attachments, 1)
	a := res.Attachments[0]
	assert.Equal(t, launchprobe.LaunchScreenName, a.Name)
	assert.Equal(t, launchprobe.KeepAlways, a.Retention)
	assert.Equal(t, res.RunID, a.RunID)
	assert.Equal(t, probetest.DefaultSurface.Data, a.Artifact.Data)
	assert.Equal(t, launchprobe.ContentTypeText, a.Artifact.ContentType)

	apps := fake.Apps()
	require.Len(t, apps, 1)
	assert.Equal(t, 1, apps[0].Captures())
	assert.Equal(t, 1, apps[0].Terminations(), "application must be torn down exactly once")
}

func TestRunLaunchFailure(t *testing.T) {
	missing := errors.New("exec: \"./missing-app\": file not found")
	fake := &probetest.Fake{LaunchErr: missing}
	probe := newProbe(t, fake)

	res := probe.Run(context.Background(), launchprobe.Configuration{})

	assert.False(t, res.Passed())
	assert.Equal(t, launchprobe.StateFailed, res.FinalState)
	assert.Empty(t, res.Attachments)
	assert.NoError(t, res.TeardownErr)

	var lerr *launchprobe.LaunchError
	require.ErrorAs(t, res.Err, &lerr)
	assert.Equal(t, "launch", lerr.Op)
	assert.Equal(t, launchprobe.DefaultConfigurationName, lerr.Configuration)
	assert.ErrorIs(t, res.Err, missing)
	assert.Empty(t, fake.Apps())
}

func TestRunReadyTimeout(t *testing.T) {
	fake := &probetest.Fake{NeverReady: true}
	probe := newProbe(t, fake, launchprobe.WithReadyTimeout(50*time.Millisecond))

	res := probe.Run(context.Background(), launchprobe.Configuration{})

	assert.False(t, res.Passed())
	assert.Equal(t, launchprobe.StateFailed, res.FinalState)
	assert.Empty(t, res.Attachments)

	var terr *launchprobe.TimeoutError
	require.ErrorAs(t, res.Err, &terr)
	assert.Equal(t, 50*time.Millisecond, terr.Timeout)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)

	apps := fake.Apps()
	require.Len(t, apps, 1)
	assert.True(t, apps[0].Waited())
	assert.Zero(t, apps[0].Captures(), "no capture after a timeout")
	assert.Equal(t, 1, apps[0].Terminations())
}

func TestRunCallerDeadline(t *testing.T) {
	fake := &probetest.Fake{NeverReady: true}
	probe := newProbe(t, fake, launchprobe.WithReadyTimeout(time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	res := probe.Run(ctx, launchprobe.Configuration{})

	var terr *launchprobe.TimeoutError
	require.ErrorAs(t, res.Err, &terr)
	assert.Equal(t, 1, fake.Apps()[0].Terminations(), "teardown must survive an expired context")
}

func TestRunExitBeforeReady(t *testing.T) {
	exited := errors.New("process exited unexpectedly (status 127)")
	fake := &probetest.Fake{ExitBeforeReady: true, ExitErr: exited}
	probe := newProbe(t, fake)

	res := probe.Run(context.Background(), launchprobe.Configuration{Name: "dark"})

	var lerr *launchprobe.LaunchError
	require.ErrorAs(t, res.Err, &lerr)
	assert.Equal(t, "await-ready", lerr.Op)
	assert.Equal(t, "dark", lerr.Configuration)
	assert.ErrorIs(t, res.Err, exited)
	assert.Empty(t, res.Attachments)
	assert.Equal(t, 1, fake.Apps()[0].Terminations())
}

func TestRunCaptureFailure(t *testing.T) {
	gone := errors.New("pane is dead")
	fake := &probetest.Fake{CaptureErr: gone}
	probe := newProbe(t, fake)

	res := probe.Run(context.Background(), launchprobe.Configuration{})

	var cerr *launchprobe.CaptureError
	require.ErrorAs(t, res.Err, &cerr)
	assert.ErrorIs(t, res.Err, gone)
	assert.Empty(t, res.Attachments)
	assert.Equal(t, launchprobe.StateFailed, res.FinalState)
	assert.Equal(t, 1, fake.Apps()[0].Terminations())
}

func TestRunEmptySurface(t *testing.T) {
	fake := &probetest.Fake{Surface: &launchprobe.Surface{ContentType: launchprobe.ContentTypePNG}}
	probe := newProbe(t, fake)

	res := probe.Run(context.Background(), launchprobe.Configuration{})

	var cerr *launchprobe.CaptureError
	assert.ErrorAs(t, res.Err, &cerr)
	assert.Empty(t, res.Attachments)
}

func TestRunAllPerConfiguration(t *testing.T) {
	fake := &probetest.Fake{}
	probe := newProbe(t, fake)

	results := probe.RunAll(context.Background(),
		launchprobe.Configuration{Name: "light", Appearance: launchprobe.AppearanceLight},
		launchprobe.Configuration{Name: "dark", Appearance: launchprobe.AppearanceDark},
	)

	require.Len(t, results, 2)
	assert.NotEqual(t, results[0].RunID, results[1].RunID)
	for i, want := range []string{"light", "dark"} {
		assert.True(t, results[i].Passed())
		assert.Equal(t, want, results[i].Configuration.Name)
		require.Len(t, results[i].Attachments, 1)
		assert.Equal(t, results[i].RunID, results[i].Attachments[0].RunID)
	}

	apps := fake.Apps()
	require.Len(t, apps, 2)
	assert.Equal(t, launchprobe.AppearanceLight, apps[0].Config.Appearance)
	assert.Equal(t, launchprobe.AppearanceDark, apps[1].Config.Appearance)
	assert.Zero(t, fake.Running())
}

func TestRunAllFailureIsolated(t *testing.T) {
	// The first configuration times out; the second must still run.
	fake := &probetest.Fake{NeverReady: true}
	probe := newProbe(t, fake, launchprobe.WithReadyTimeout(20*time.Millisecond))

	results := probe.RunAll(context.Background(),
		launchprobe.Configuration{Name: "a"},
		launchprobe.Configuration{Name: "b"},
	)

	require.Len(t, results, 2)
	for _, res := range results {
		assert.False(t, res.Passed())
	}
	assert.Len(t, fake.Apps(), 2)
	assert.Zero(t, fake.Running())
}

func TestRunAllFirstConfigurationOnly(t *testing.T) {
	fake := &probetest.Fake{}
	probe := newProbe(t, fake, launchprobe.WithRunForEachConfiguration(false))

	results := probe.RunAll(context.Background(),
		launchprobe.Configuration{Name: "light"},
		launchprobe.Configuration{Name: "dark"},
	)

	require.Len(t, results, 1)
	assert.Equal(t, "light", results[0].Configuration.Name)
	assert.Len(t, fake.Apps(), 1)
}

func TestRunAllDefaultConfiguration(t *testing.T) {
	fake := &probetest.Fake{}
	probe := newProbe(t, fake)

	results := probe.RunAll(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, launchprobe.DefaultConfigurationName, results[0].Configuration.Name)
}

func TestRunsAreIndependent(t *testing.T) {
	fake := &probetest.Fake{}
	probe := newProbe(t, fake)
	ctx := context.Background()

	first := probe.Configure(launchprobe.Configuration{})
	second := probe.Configure(launchprobe.Configuration{})
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.ContinueAfterFailure())
	assert.True(t, first.RunForEachConfiguration)

	h1, err := probe.Launch(ctx, first)
	require.NoError(t, err)
	r1 := probe.Report(ctx, first)

	h2, err := probe.Launch(ctx, second)
	require.NoError(t, err)
	r2 := probe.Report(ctx, second)

	assert.NotEqual(t, h1.ID, h2.ID)
	assert.Equal(t, first.ID, h1.RunID)
	assert.Equal(t, second.ID, h2.RunID)
	assert.NotSame(t, r1, r2)
	assert.Zero(t, fake.Running())
}

func TestStepsOutOfOrder(t *testing.T) {
	fake := &probetest.Fake{}
	probe := newProbe(t, fake)
	ctx := context.Background()

	run := probe.Configure(launchprobe.Configuration{})
	h, err := probe.Launch(ctx, run)
	require.NoError(t, err)

	_, err = probe.Capture(ctx, h)
	assert.ErrorIs(t, err, launchprobe.ErrInvalidState)
	assert.Equal(t, launchprobe.StateLaunching, run.State(), "out-of-order call must not change state")

	_, err = probe.Launch(ctx, run)
	assert.ErrorIs(t, err, launchprobe.ErrInvalidState)

	_, err = probe.AwaitReady(ctx, nil)
	assert.ErrorIs(t, err, launchprobe.ErrInvalidState)

	_, err = probe.Attach(run, nil)
	assert.Error(t, err)

	res := probe.Report(ctx, run)
	assert.False(t, res.Passed())
	assert.ErrorIs(t, res.Err, launchprobe.ErrIncomplete)
	assert.Equal(t, 1, fake.Apps()[0].Terminations())
}

func TestStepsByHand(t *testing.T) {
	fixed := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)
	fake := &probetest.Fake{}
	probe := newProbe(t, fake, launchprobe.WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	run := probe.Configure(launchprobe.Configuration{Name: "light"})
	assert.Equal(t, launchprobe.StateUnstarted, run.State())

	h, err := probe.Launch(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, launchprobe.StateLaunching, run.State())

	rs, err := probe.AwaitReady(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, h.ID, rs.HandleID)
	assert.Equal(t, launchprobe.StateAwaitingReady, run.State())

	art, err := probe.Capture(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, launchprobe.StateCapturing, run.State())

	a, err := probe.Attach(run, art)
	require.NoError(t, err)
	assert.Equal(t, launchprobe.StateAttached, run.State())

	want := launchprobe.Attachment{
		RunID:     run.ID,
		Name:      "Launch Screen",
		Retention: launchprobe.KeepAlways,
		Artifact: launchprobe.Artifact{
			Name:        "Launch Screen",
			ContentType: launchprobe.ContentTypeText,
			Data:        probetest.DefaultSurface.Data,
			Width:       80,
			Height:      24,
			CapturedAt:  fixed,
		},
	}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Errorf("attachment mismatch (-want +got):\n%s", diff)
	}

	_, err = probe.Attach(run, art)
	assert.ErrorIs(t, err, launchprobe.ErrInvalidState, "a run carries at most one attachment")

	res := probe.Report(ctx, run)
	assert.True(t, res.Passed())
	assert.Equal(t, launchprobe.StateReported, run.State())
	if diff := cmp.Diff([]launchprobe.Attachment{want}, res.Attachments); diff != "" {
		t.Errorf("result attachments mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, fixed, res.StartedAt)
	assert.Zero(t, res.Duration)
}

func TestAttachmentOwnsItsData(t *testing.T) {
	surface := launchprobe.Surface{ContentType: launchprobe.ContentTypePNG, Data: []byte{0x89, 'P', 'N', 'G'}}
	fake := &probetest.Fake{Surface: &surface}
	probe := newProbe(t, fake)

	res := probe.Run(context.Background(), launchprobe.Configuration{})
	require.True(t, res.Passed())

	surface.Data[1] = 'X'
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, res.Attachments[0].Artifact.Data)
}

func TestReportIsIdempotent(t *testing.T) {
	fake := &probetest.Fake{}
	calls := 0
	sink := launchprobe.SinkFunc(func(ctx context.Context, res *launchprobe.RunResult) error {
		calls++
		return nil
	})
	probe := newProbe(t, fake, launchprobe.WithSink(sink))
	ctx := context.Background()

	run := probe.Configure(launchprobe.Configuration{})
	_, err := probe.Launch(ctx, run)
	require.NoError(t, err)

	first := probe.Report(ctx, run)
	second := probe.Report(ctx, run)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, fake.Apps()[0].Terminations())
}

func TestTeardownErrorRecorded(t *testing.T) {
	stuck := errors.New("kill-server: no server running")
	fake := &probetest.Fake{TerminateErr: stuck}
	probe := newProbe(t, fake)

	res := probe.Run(context.Background(), launchprobe.Configuration{})

	assert.True(t, res.Passed(), "teardown failures do not change the outcome")
	assert.ErrorIs(t, res.TeardownErr, stuck)
}

func TestSinkErrorLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	fake := &probetest.Fake{}
	sink := launchprobe.SinkFunc(func(ctx context.Context, res *launchprobe.RunResult) error {
		return errors.New("disk full")
	})
	probe := launchprobe.New(fake, launchprobe.WithLogger(zap.New(core)), launchprobe.WithSink(sink))

	res := probe.Run(context.Background(), launchprobe.Configuration{Name: "light"})
	assert.True(t, res.Passed())

	warned := logs.FilterMessage("sink rejected result").All()
	require.Len(t, warned, 1)
	assert.Equal(t, zapcore.WarnLevel, warned[0].Level)
}

func TestLogsTransitionsAndResult(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	fake := &probetest.Fake{}
	probe := launchprobe.New(fake, launchprobe.WithLogger(zap.New(core)))

	res := probe.Run(context.Background(), launchprobe.Configuration{Name: "light"})

	transitions := logs.FilterMessage("transition").All()
	require.Len(t, transitions, 5)
	assert.Equal(t, "reported", transitions[4].ContextMap()["to"])

	finished := logs.FilterMessage("run finished").All()
	require.Len(t, finished, 1)
	fields := finished[0].ContextMap()
	assert.Equal(t, "passed", fields["status"])
	assert.Equal(t, res.RunID, fields["run_id"])
	assert.Equal(t, "light", fields["configuration"])
}

type panickyApp struct {
	terminated int
}

func (a *panickyApp) WaitReady(ctx context.Context) error { return nil }

func (a *panickyApp) Capture(ctx context.Context) (launchprobe.Surface, error) {
	panic("surface exploded")
}

func (a *panickyApp) Terminate(ctx context.Context) error {
	a.terminated++
	return nil
}

type panickyLauncher struct{ app *panickyApp }

func (l *panickyLauncher) Launch(ctx context.Context, cfg launchprobe.Configuration) (launchprobe.Application, error) {
	return l.app, nil
}

func TestRunPanicStillTearsDown(t *testing.T) {
	app := &panickyApp{}
	probe := newProbe(t, &panickyLauncher{app: app})

	assert.PanicsWithValue(t, "surface exploded", func() {
		probe.Run(context.Background(), launchprobe.Configuration{})
	})
	assert.Equal(t, 1, app.terminated)
}

func TestNewRejectsNegativeTimeout(t *testing.T) {
	assert.Panics(t, func() {
		launchprobe.New(&probetest.Fake{}, launchprobe.WithReadyTimeout(-time.Second))
	})
	assert.Panics(t, func() {
		launchprobe.New(nil)
	})
}

func TestNewDefaults(t *testing.T) {
	probe := launchprobe.New(&probetest.Fake{}, launchprobe.WithReadyTimeout(0), launchprobe.WithLogger(nil))
	assert.Equal(t, launchprobe.DefaultReadyTimeout, probe.ReadyTimeout())
}
