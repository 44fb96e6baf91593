package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cboone/launchprobe"
	"github.com/cboone/launchprobe/browser"
	"github.com/cboone/launchprobe/internal/config"
	"github.com/cboone/launchprobe/terminal"
)

// newLauncher is replaced in tests.
var newLauncher = buildLauncher

func buildLauncher(p *config.Probe, log *zap.Logger) (launchprobe.Launcher, error) {
	switch p.Driver {
	case config.DriverTerminal:
		return terminalLauncher(p, log), nil
	case config.DriverBrowser:
		return browserLauncher(p, log), nil
	}
	return nil, fmt.Errorf("unknown driver %q", p.Driver)
}

func terminalLauncher(p *config.Probe, log *zap.Logger) *terminal.Launcher {
	opts := []terminal.Option{
		terminal.WithArgs(p.Args...),
		terminal.WithEnv(p.Env...),
		terminal.WithDir(p.Dir),
		terminal.WithLogger(log),
	}
	if p.Terminal.Width > 0 && p.Terminal.Height > 0 {
		opts = append(opts, terminal.WithSize(p.Terminal.Width, p.Terminal.Height))
	}
	if p.Ready.PollInterval > 0 {
		opts = append(opts, terminal.WithPollInterval(p.Ready.PollInterval))
	}
	if p.Ready.StableFor > 0 {
		opts = append(opts, terminal.WithStableFor(p.Ready.StableFor))
	}
	if p.Terminal.TmuxPath != "" {
		opts = append(opts, terminal.WithTmuxPath(p.Terminal.TmuxPath))
	}
	if p.Terminal.HistoryLimit > 0 {
		opts = append(opts, terminal.WithHistoryLimit(p.Terminal.HistoryLimit))
	}

	var matchers []terminal.Matcher
	if p.Ready.Text != "" {
		matchers = append(matchers, terminal.Text(p.Ready.Text))
	}
	if p.Ready.Regexp != "" {
		matchers = append(matchers, terminal.Regexp(p.Ready.Regexp))
	}
	switch len(matchers) {
	case 0:
	case 1:
		opts = append(opts, terminal.WithReady(matchers[0]))
	default:
		opts = append(opts, terminal.WithReady(terminal.All(matchers...)))
	}

	if len(p.Keys) > 0 {
		keys := make([]terminal.Key, len(p.Keys))
		for i, k := range p.Keys {
			keys[i] = terminal.Key(k)
		}
		opts = append(opts, terminal.WithKeys(keys...))
	}

	return terminal.NewLauncher(p.Target, opts...)
}

func browserLauncher(p *config.Probe, log *zap.Logger) *browser.Launcher {
	opts := []browser.Option{browser.WithLogger(log)}
	if p.Browser.ChromePath != "" {
		opts = append(opts, browser.WithExecPath(p.Browser.ChromePath))
	}
	if p.Browser.Headless != nil {
		opts = append(opts, browser.WithHeadless(*p.Browser.Headless))
	}
	if p.Browser.NoSandbox {
		opts = append(opts, browser.WithNoSandbox())
	}
	if p.Browser.FullPage {
		opts = append(opts, browser.WithFullPage())
	}
	if p.Browser.Width > 0 && p.Browser.Height > 0 {
		opts = append(opts, browser.WithWindowSize(p.Browser.Width, p.Browser.Height))
	}
	if p.Ready.Selector != "" {
		opts = append(opts, browser.WithReadySelector(p.Ready.Selector))
	}
	if p.Ready.PollInterval > 0 {
		opts = append(opts, browser.WithPollInterval(p.Ready.PollInterval))
	}
	for name, value := range p.Browser.Flags {
		opts = append(opts, browser.WithFlag(name, value))
	}
	return browser.NewLauncher(p.Target, opts...)
}

// configurations converts the probe's declared configurations. An empty
// list yields a single default configuration.
func configurations(p *config.Probe) []launchprobe.Configuration {
	cfgs := make([]launchprobe.Configuration, 0, len(p.Configurations))
	for _, c := range p.Configurations {
		cfgs = append(cfgs, launchprobe.Configuration{
			Name:       c.Name,
			Args:       c.Args,
			Env:        c.Env,
			Dir:        c.Dir,
			Width:      c.Width,
			Height:     c.Height,
			Appearance: launchprobe.Appearance(c.Appearance),
			Locale:     c.Locale,
		})
	}
	return cfgs
}
