package terminal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/cboone/launchprobe"
	"github.com/cboone/launchprobe/internal/tmuxcli"
)

// Launcher starts a terminal binary inside a private tmux server.
type Launcher struct {
	binary string
	opts   options
	log    *zap.Logger
}

var _ launchprobe.Launcher = (*Launcher)(nil)

// NewLauncher returns a Launcher for binary.
func NewLauncher(binary string, userOpts ...Option) *Launcher {
	opts := defaultOptions()
	for _, o := range userOpts {
		o(&opts)
	}
	if opts.logger == nil {
		opts.logger = zap.NewNop()
	}
	if opts.ready == nil {
		opts.ready = Not(Empty())
	}
	return &Launcher{
		binary: binary,
		opts:   opts,
		log:    opts.logger.Named("terminal"),
	}
}

// Launch implements launchprobe.Launcher. The binary must exist and be
// executable; tmux 3.0 or newer must be available.
func (l *Launcher) Launch(ctx context.Context, cfg launchprobe.Configuration) (launchprobe.Application, error) {
	if err := l.validate(); err != nil {
		return nil, fmt.Errorf("terminal: launch: %w", err)
	}

	binary, err := exec.LookPath(l.binary)
	if err != nil {
		return nil, fmt.Errorf("terminal: launch: %w", err)
	}

	tmuxPath, err := resolveTmuxPath(l.opts.tmuxPath)
	if err != nil {
		return nil, fmt.Errorf("terminal: launch: %w", err)
	}
	if err := checkTmuxVersion(ctx, tmuxPath); err != nil {
		return nil, fmt.Errorf("terminal: launch: %w", err)
	}

	socketPath, err := generateSocketPath(cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("terminal: launch: %w", err)
	}

	log := l.log.With(zap.String("configuration", cfg.Name))
	runner := tmuxcli.New(tmuxPath, socketPath, log)

	historyLimit := l.opts.historyLimit
	if historyLimit == 0 {
		historyLimit = defaultHistoryLimit
	}
	configPath := socketPath + ".conf"
	if err := writeConfig(configPath, historyLimit); err != nil {
		return nil, fmt.Errorf("terminal: launch: %w", err)
	}
	runner.SetConfigPath(configPath)

	spec := l.sessionSpec(binary, cfg)
	a := &app{
		runner:       runner,
		width:        spec.width,
		height:       spec.height,
		ready:        l.opts.ready,
		pollInterval: max(l.opts.pollInterval, minPollInterval),
		stableFor:    l.opts.stableFor,
		log:          log,
	}

	if err := a.start(ctx, spec, l.opts.keys); err != nil {
		_ = a.Terminate(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("terminal: launch: %w", err)
	}

	log.Debug("session started",
		zap.String("binary", binary),
		zap.Strings("args", spec.args),
		zap.String("pane", a.pane))
	return a, nil
}

func (l *Launcher) validate() error {
	switch {
	case l.binary == "":
		return errors.New("no binary")
	case l.opts.pollInterval < 0:
		return fmt.Errorf("negative poll interval: %v", l.opts.pollInterval)
	case l.opts.stableFor < 0:
		return fmt.Errorf("negative stable window: %v", l.opts.stableFor)
	case l.opts.historyLimit < 0:
		return fmt.Errorf("negative history limit: %d", l.opts.historyLimit)
	}
	return nil
}

// sessionSpec merges launcher options with the configuration. Configuration
// values win for size and directory; arguments and environment are appended.
func (l *Launcher) sessionSpec(binary string, cfg launchprobe.Configuration) sessionSpec {
	spec := sessionSpec{
		binary: binary,
		dir:    l.opts.dir,
		width:  l.opts.width,
		height: l.opts.height,
	}
	if cfg.Dir != "" {
		spec.dir = cfg.Dir
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		spec.width, spec.height = cfg.Width, cfg.Height
	}

	spec.args = append(append(spec.args, l.opts.args...), cfg.Args...)
	spec.env = append(append(spec.env, l.opts.env...), configurationEnv(cfg)...)
	spec.env = append(spec.env, cfg.Env...)
	return spec
}

// configurationEnv maps appearance and locale onto the conventional
// terminal environment: COLORFGBG for background, LANG/LC_ALL for locale.
func configurationEnv(cfg launchprobe.Configuration) []string {
	var env []string
	switch cfg.Appearance {
	case launchprobe.AppearanceDark:
		env = append(env, "COLORFGBG=15;0")
	case launchprobe.AppearanceLight:
		env = append(env, "COLORFGBG=0;15")
	}
	if cfg.Locale != "" {
		locale := cfg.Locale
		if !strings.Contains(locale, ".") {
			locale += ".UTF-8"
		}
		env = append(env, "LANG="+locale, "LC_ALL="+locale)
	}
	return env
}
