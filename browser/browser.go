// Package browser launches web applications for launchprobe in a headless
// Chrome driven through the DevTools protocol.
//
// Each launch starts its own browser process with a fresh profile and
// navigates to the target URL. The page is ready when the ready selector
// (default "body") is present and document.readyState is "complete".
// Captures are PNG screenshots of the viewport, or of the whole page with
// WithFullPage.
//
// Chrome is resolved from WithExecPath, then LAUNCHPROBE_CHROME, then
// chromedp's default lookup.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/cboone/launchprobe"
)

// chromeEnv overrides chromedp's Chrome lookup.
const chromeEnv = "LAUNCHPROBE_CHROME"

const (
	defaultWidth        = 1280
	defaultHeight       = 800
	defaultPollInterval = 50 * time.Millisecond
	defaultSelector     = "body"
)

type options struct {
	execPath     string
	headless     bool
	noSandbox    bool
	fullPage     bool
	selector     string
	width        int
	height       int
	pollInterval time.Duration
	flags        map[string]any
	logger       *zap.Logger
}

// Option configures a Launcher created by NewLauncher.
type Option func(*options)

// WithExecPath sets the Chrome binary.
func WithExecPath(path string) Option {
	return func(o *options) {
		o.execPath = path
	}
}

// WithHeadless controls headless mode (default true).
func WithHeadless(headless bool) Option {
	return func(o *options) {
		o.headless = headless
	}
}

// WithNoSandbox disables the Chrome sandbox, which containers usually need.
func WithNoSandbox() Option {
	return func(o *options) {
		o.noSandbox = true
	}
}

// WithFullPage captures the whole scrollable page instead of the viewport.
func WithFullPage() Option {
	return func(o *options) {
		o.fullPage = true
	}
}

// WithReadySelector sets the CSS selector that must be present before the
// page counts as ready.
func WithReadySelector(sel string) Option {
	return func(o *options) {
		o.selector = sel
	}
}

// WithWindowSize sets the viewport used when the configuration has none.
func WithWindowSize(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithPollInterval sets how often document.readyState is checked.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithFlag passes a command-line flag to Chrome.
func WithFlag(name string, value any) Option {
	return func(o *options) {
		o.flags[name] = value
	}
}

// WithLogger sets the logger for browser lifecycle traces.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Launcher opens a URL in a new headless Chrome per launch.
type Launcher struct {
	url  string
	opts options
	log  *zap.Logger
}

var _ launchprobe.Launcher = (*Launcher)(nil)

// NewLauncher returns a Launcher for url.
func NewLauncher(url string, userOpts ...Option) *Launcher {
	opts := options{
		headless:     true,
		selector:     defaultSelector,
		width:        defaultWidth,
		height:       defaultHeight,
		pollInterval: defaultPollInterval,
		flags:        map[string]any{},
		logger:       zap.NewNop(),
	}
	for _, o := range userOpts {
		o(&opts)
	}
	if opts.logger == nil {
		opts.logger = zap.NewNop()
	}
	if opts.execPath == "" {
		opts.execPath = os.Getenv(chromeEnv)
	}
	return &Launcher{
		url:  url,
		opts: opts,
		log:  opts.logger.Named("browser"),
	}
}

// allocatorOptions builds the Chrome command line for cfg.
func (l *Launcher) allocatorOptions(cfg launchprobe.Configuration) []chromedp.ExecAllocatorOption {
	width, height := l.opts.width, l.opts.height
	if cfg.Width > 0 && cfg.Height > 0 {
		width, height = cfg.Width, cfg.Height
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(width, height),
	)
	if l.opts.execPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.execPath))
	}
	if l.opts.noSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.Locale != "" {
		opts = append(opts, chromedp.Flag("lang", cfg.Locale))
	}
	for name, value := range l.opts.flags {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if len(cfg.Env) > 0 {
		opts = append(opts, chromedp.Env(cfg.Env...))
	}
	return opts
}

// Launch implements launchprobe.Launcher. The browser outlives ctx; ctx
// bounds only startup and the initial navigation.
func (l *Launcher) Launch(ctx context.Context, cfg launchprobe.Configuration) (launchprobe.Application, error) {
	if l.url == "" {
		return nil, errors.New("browser: launch: no URL")
	}
	if l.opts.pollInterval <= 0 {
		return nil, fmt.Errorf("browser: launch: poll interval must be positive: %v", l.opts.pollInterval)
	}

	log := l.log.With(zap.String("configuration", cfg.Name), zap.String("url", l.url))

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), l.allocatorOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(zap.NewStdLog(log).Printf),
	)
	a := &app{
		ctx:          browserCtx,
		cancel:       func() { browserCancel(); allocCancel() },
		selector:     l.opts.selector,
		fullPage:     l.opts.fullPage,
		pollInterval: l.opts.pollInterval,
		log:          log,
	}

	// The first Run starts Chrome and must use the browser context itself:
	// a derived context would close the browser when it ends.
	if err := chromedp.Run(browserCtx); err != nil {
		a.cancel()
		return nil, fmt.Errorf("browser: launch: start chrome: %w", err)
	}

	var actions []chromedp.Action
	if feature := colorScheme(cfg.Appearance); feature != nil {
		actions = append(actions, emulation.SetEmulatedMedia().WithFeatures([]*emulation.MediaFeature{feature}))
	}
	actions = append(actions, chromedp.Navigate(l.url))

	if err := a.run(ctx, actions...); err != nil {
		a.cancel()
		return nil, fmt.Errorf("browser: launch: navigate: %w", err)
	}

	log.Debug("browser started")
	return a, nil
}

func colorScheme(a launchprobe.Appearance) *emulation.MediaFeature {
	switch a {
	case launchprobe.AppearanceDark:
		return &emulation.MediaFeature{Name: "prefers-color-scheme", Value: "dark"}
	case launchprobe.AppearanceLight:
		return &emulation.MediaFeature{Name: "prefers-color-scheme", Value: "light"}
	}
	return nil
}
