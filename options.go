package launchprobe

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	readyTimeout            time.Duration
	runForEachConfiguration bool
	logger                  *zap.Logger
	sink                    Sink
	now                     func() time.Time
}

// Option configures a Probe created by New.
type Option func(*options)

// WithReadyTimeout sets the bound for AwaitReady.
// A value of 0 keeps the default. Negative values make New panic.
func WithReadyTimeout(d time.Duration) Option {
	return func(o *options) {
		o.readyTimeout = d
	}
}

// WithRunForEachConfiguration controls whether RunAll repeats the probe once
// per configuration (true, the default) or runs only the first one.
func WithRunForEachConfiguration(each bool) Option {
	return func(o *options) {
		o.runForEachConfiguration = each
	}
}

// WithLogger sets the logger used for state transitions and results.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithSink sets a Sink that receives every RunResult after teardown.
func WithSink(s Sink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// withClock replaces time.Now for tests.
func withClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

const (
	// DefaultReadyTimeout bounds AwaitReady when no timeout is configured.
	DefaultReadyTimeout = 10 * time.Second
)

func defaultOptions() options {
	return options{
		readyTimeout:            DefaultReadyTimeout,
		runForEachConfiguration: true,
		logger:                  zap.NewNop(),
		now:                     time.Now,
	}
}
