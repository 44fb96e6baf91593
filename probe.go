package launchprobe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// teardownTimeout bounds Terminate. Teardown runs on a context detached from
// the caller's cancellation so that an expired run still releases its
// application.
const teardownTimeout = 5 * time.Second

// Probe drives target applications through launch, readiness and capture.
// A Probe holds no per-run state and may be reused for any number of runs.
type Probe struct {
	launcher Launcher
	opts     options
	log      *zap.Logger
}

// New returns a Probe that starts applications with l.
func New(l Launcher, userOpts ...Option) *Probe {
	if l == nil {
		panic("launchprobe: new: nil Launcher")
	}

	opts := defaultOptions()
	for _, o := range userOpts {
		o(&opts)
	}

	if opts.readyTimeout < 0 {
		panic(fmt.Sprintf("launchprobe: new: negative ready timeout: %v", opts.readyTimeout))
	}
	if opts.readyTimeout == 0 {
		opts.readyTimeout = DefaultReadyTimeout
	}
	if opts.logger == nil {
		opts.logger = zap.NewNop()
	}
	if opts.now == nil {
		opts.now = time.Now
	}

	return &Probe{
		launcher: l,
		opts:     opts,
		log:      opts.logger.Named("probe"),
	}
}

// ReadyTimeout returns the bound applied by AwaitReady.
func (p *Probe) ReadyTimeout() time.Duration {
	return p.opts.readyTimeout
}

// Configure creates a TestRun for cfg. It never fails.
func (p *Probe) Configure(cfg Configuration) *TestRun {
	run := newTestRun(cfg, p.opts.runForEachConfiguration, p.opts.now(), p.log)
	run.log.Debug("configured", zap.Bool("run_for_each_configuration", run.RunForEachConfiguration))
	return run
}

// Launch starts a new application instance for run.
func (p *Probe) Launch(ctx context.Context, run *TestRun) (*ApplicationHandle, error) {
	if err := p.transition(run, StateLaunching); err != nil {
		return nil, fmt.Errorf("launchprobe: launch: %w", err)
	}

	app, err := p.launcher.Launch(ctx, run.Configuration)
	if err == nil && app == nil {
		err = errors.New("launcher returned no application")
	}
	if err != nil {
		lerr := &LaunchError{Op: "launch", Configuration: run.Configuration.Name, Err: err}
		p.fail(ctx, run, lerr)
		return nil, lerr
	}

	h := newHandle(run, app, p.opts.now())
	run.mu.Lock()
	run.handle = h
	run.mu.Unlock()

	run.log.Debug("launched", zap.String("handle_id", h.ID))
	return h, nil
}

// AwaitReady blocks until the application is ready or the ready timeout
// expires.
func (p *Probe) AwaitReady(ctx context.Context, h *ApplicationHandle) (ReadyState, error) {
	if h == nil {
		return ReadyState{}, fmt.Errorf("launchprobe: await-ready: nil handle: %w", ErrInvalidState)
	}
	run := h.run
	if err := p.transition(run, StateAwaitingReady); err != nil {
		return ReadyState{}, fmt.Errorf("launchprobe: await-ready: %w", err)
	}

	start := p.opts.now()
	wctx, cancel := context.WithTimeout(ctx, p.opts.readyTimeout)
	defer cancel()

	if err := h.app.WaitReady(wctx); err != nil {
		var serr error
		if wctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			serr = &TimeoutError{Timeout: p.opts.readyTimeout, Err: err}
		} else {
			serr = &LaunchError{Op: "await-ready", Configuration: run.Configuration.Name, Err: err}
		}
		p.fail(ctx, run, serr)
		return ReadyState{}, serr
	}

	now := p.opts.now()
	rs := ReadyState{
		HandleID: h.ID,
		ReadyAt:  now,
		Elapsed:  now.Sub(start),
	}
	run.log.Debug("ready", zap.Duration("elapsed", rs.Elapsed))
	return rs, nil
}

// Capture snapshots the application's current surface.
func (p *Probe) Capture(ctx context.Context, h *ApplicationHandle) (*Artifact, error) {
	if h == nil {
		return nil, fmt.Errorf("launchprobe: capture: nil handle: %w", ErrInvalidState)
	}
	run := h.run
	if err := p.transition(run, StateCapturing); err != nil {
		return nil, fmt.Errorf("launchprobe: capture: %w", err)
	}

	surf, err := h.app.Capture(ctx)
	if err == nil && len(surf.Data) == 0 {
		err = errors.New("empty surface")
	}
	if err != nil {
		cerr := &CaptureError{Err: err}
		p.fail(ctx, run, cerr)
		return nil, cerr
	}

	contentType := surf.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	data := make([]byte, len(surf.Data))
	copy(data, surf.Data)

	art := &Artifact{
		Name:        LaunchScreenName,
		ContentType: contentType,
		Data:        data,
		Width:       surf.Width,
		Height:      surf.Height,
		CapturedAt:  p.opts.now(),
	}
	run.log.Debug("captured", zap.String("content_type", art.ContentType), zap.Int("bytes", len(art.Data)))
	return art, nil
}

// Attach binds art to run as the "Launch Screen" attachment with KeepAlways
// retention.
func (p *Probe) Attach(run *TestRun, art *Artifact) (Attachment, error) {
	if art == nil {
		return Attachment{}, errors.New("launchprobe: attach: nil artifact")
	}
	if err := p.transition(run, StateAttached); err != nil {
		return Attachment{}, fmt.Errorf("launchprobe: attach: %w", err)
	}

	a := Attachment{
		RunID:     run.ID,
		Name:      LaunchScreenName,
		Retention: KeepAlways,
		Artifact:  *art,
	}
	run.mu.Lock()
	run.attachments = append(run.attachments, a)
	run.mu.Unlock()

	run.log.Debug("attached", zap.String("name", a.Name), zap.Stringer("retention", a.Retention))
	return a, nil
}

// Report terminates the application, finalizes run and returns its result.
// A run reported before it reached Attached fails with ErrIncomplete.
// Reporting the same run again returns the same result without repeating
// teardown or notifying the sink.
func (p *Probe) Report(ctx context.Context, run *TestRun) *RunResult {
	run.mu.Lock()
	if run.result != nil {
		res := run.result
		run.mu.Unlock()
		return res
	}
	state := run.state
	run.mu.Unlock()

	switch {
	case state == StateAttached:
		if err := p.transition(run, StateReported); err != nil {
			p.fail(ctx, run, err)
		}
	case !state.Terminal():
		p.fail(ctx, run, fmt.Errorf("%w (state %s)", ErrIncomplete, state))
	}

	run.mu.Lock()
	handle := run.handle
	run.mu.Unlock()

	var teardownErr error
	if handle != nil {
		teardownErr = p.teardown(ctx, handle)
	}

	run.mu.Lock()
	res := &RunResult{
		RunID:         run.ID,
		Configuration: run.Configuration,
		FinalState:    run.state,
		Err:           run.err,
		StartedAt:     run.startedAt,
		Duration:      p.opts.now().Sub(run.startedAt),
		TeardownErr:   teardownErr,
	}
	if run.state == StateReported && run.err == nil {
		res.Status = StatusPassed
		res.Attachments = make([]Attachment, len(run.attachments))
		copy(res.Attachments, run.attachments)
	} else {
		res.Status = StatusFailed
	}
	run.result = res
	run.mu.Unlock()

	fields := []zap.Field{
		zap.String("status", string(res.Status)),
		zap.Stringer("state", res.FinalState),
		zap.Int("attachments", len(res.Attachments)),
		zap.Duration("duration", res.Duration),
	}
	if res.Err != nil {
		fields = append(fields, zap.Error(res.Err))
	}
	if teardownErr != nil {
		fields = append(fields, zap.NamedError("teardown_error", teardownErr))
	}
	run.log.Info("run finished", fields...)

	if p.opts.sink != nil {
		if err := p.opts.sink.Report(ctx, res); err != nil {
			run.log.Warn("sink rejected result", zap.Error(err))
		}
	}
	return res
}

// Run executes one complete probe for cfg:
// configure, launch, await-ready, capture, attach, report.
// Any failure skips the remaining steps; teardown always happens.
func (p *Probe) Run(ctx context.Context, cfg Configuration) (res *RunResult) {
	run := p.Configure(cfg)

	defer func() {
		if r := recover(); r != nil {
			p.fail(ctx, run, fmt.Errorf("launchprobe: panic: %v", r))
			p.Report(ctx, run)
			panic(r)
		}
	}()

	p.execute(ctx, run)
	return p.Report(ctx, run)
}

func (p *Probe) execute(ctx context.Context, run *TestRun) {
	h, err := p.Launch(ctx, run)
	if err != nil {
		return
	}
	if _, err := p.AwaitReady(ctx, h); err != nil {
		return
	}
	art, err := p.Capture(ctx, h)
	if err != nil {
		return
	}
	if _, err := p.Attach(run, art); err != nil {
		p.fail(ctx, run, err)
	}
}

// RunAll runs the probe once per configuration, one after another, when
// RunForEachConfiguration is enabled, and once for the first configuration
// otherwise. With no configurations it runs the default configuration.
func (p *Probe) RunAll(ctx context.Context, cfgs ...Configuration) []*RunResult {
	if len(cfgs) == 0 {
		cfgs = []Configuration{{}}
	}
	if !p.opts.runForEachConfiguration {
		cfgs = cfgs[:1]
	}

	results := make([]*RunResult, 0, len(cfgs))
	for _, cfg := range cfgs {
		results = append(results, p.Run(ctx, cfg))
	}
	return results
}

// transition moves run to the given state if the edge is legal.
func (p *Probe) transition(run *TestRun, to State) error {
	run.mu.Lock()
	from := run.state
	if !canTransition(from, to) {
		run.mu.Unlock()
		return fmt.Errorf("%w: %s → %s", ErrInvalidState, from, to)
	}
	run.state = to
	run.mu.Unlock()

	run.log.Debug("transition", zap.Stringer("from", from), zap.Stringer("to", to))
	return nil
}

// fail moves run to StateFailed, records err and tears down the application
// if one was launched. It is a no-op on a run that is already terminal.
func (p *Probe) fail(ctx context.Context, run *TestRun, err error) {
	run.mu.Lock()
	if run.state.Terminal() {
		run.mu.Unlock()
		return
	}
	from := run.state
	run.state = StateFailed
	run.err = err
	handle := run.handle
	run.mu.Unlock()

	run.log.Debug("transition", zap.Stringer("from", from), zap.Stringer("to", StateFailed), zap.Error(err))
	if handle != nil {
		_ = p.teardown(ctx, handle)
	}
}

func (p *Probe) teardown(ctx context.Context, h *ApplicationHandle) error {
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()
	return h.terminate(tctx)
}
