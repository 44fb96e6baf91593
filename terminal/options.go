package terminal

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	args         []string
	env          []string
	dir          string
	width        int
	height       int
	pollInterval time.Duration
	stableFor    time.Duration
	tmuxPath     string
	historyLimit int
	ready        Matcher
	keys         []Key
	logger       *zap.Logger
}

// Option configures a Launcher created by NewLauncher.
type Option func(*options)

// WithArgs sets arguments passed to the binary before any configuration
// arguments.
func WithArgs(args ...string) Option {
	return func(o *options) {
		o.args = args
	}
}

// WithEnv appends environment variables to the process environment.
// Each entry should be in "KEY=VALUE" format.
func WithEnv(env ...string) Option {
	return func(o *options) {
		o.env = append(o.env, env...)
	}
}

// WithDir sets the working directory used when the configuration has none.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithSize sets the terminal dimensions (columns x rows) used when the
// configuration has none.
func WithSize(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithPollInterval sets how often the screen is sampled while waiting.
// Values under 10ms are clamped to 10ms.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithStableFor sets how long the screen must stay unchanged before the
// application counts as idle. Zero accepts the first matching screen.
func WithStableFor(d time.Duration) Option {
	return func(o *options) {
		o.stableFor = d
	}
}

// WithTmuxPath sets the path to the tmux binary. The LAUNCHPROBE_TMUX
// environment variable is consulted before a PATH lookup when this is unset.
func WithTmuxPath(path string) Option {
	return func(o *options) {
		o.tmuxPath = path
	}
}

// WithHistoryLimit sets the tmux scrollback history limit.
func WithHistoryLimit(limit int) Option {
	return func(o *options) {
		o.historyLimit = limit
	}
}

// WithReady sets the matcher that marks the launch screen as ready.
// The default accepts any non-empty screen.
func WithReady(m Matcher) Option {
	return func(o *options) {
		o.ready = m
	}
}

// WithKeys sets keys sent to the application right after it starts, before
// readiness is awaited. Use it to dismiss splash prompts.
func WithKeys(keys ...Key) Option {
	return func(o *options) {
		o.keys = keys
	}
}

// WithLogger sets the logger for launch and tmux command traces.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

const (
	defaultWidth        = 80
	defaultHeight       = 24
	defaultPollInterval = 50 * time.Millisecond
	defaultStableFor    = 250 * time.Millisecond
	defaultHistoryLimit = 10000
	minPollInterval     = 10 * time.Millisecond
	sessionStartTimeout = 5 * time.Second
)

func defaultOptions() options {
	return options{
		width:        defaultWidth,
		height:       defaultHeight,
		pollInterval: defaultPollInterval,
		stableFor:    defaultStableFor,
		historyLimit: defaultHistoryLimit,
		ready:        Not(Empty()),
		logger:       zap.NewNop(),
	}
}
