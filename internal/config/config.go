// Package config loads launchprobe probe files.
//
// A probe file names the application under test, how to tell that it is
// ready, and the configurations to repeat the launch for:
//
//	driver: terminal
//	target: ./bin/myapp
//	args: [--no-update-check]
//	ready:
//	  timeout: 10s
//	  text: Sign in with Google
//	keys: [Enter]
//	configurations:
//	  - name: light
//	    appearance: light
//	  - name: dark-fr
//	    appearance: dark
//	    locale: fr_FR
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Driver names.
const (
	DriverTerminal = "terminal"
	DriverBrowser  = "browser"
)

// Environment overrides, applied after the file is parsed.
const (
	EnvReadyTimeout = "LAUNCHPROBE_READY_TIMEOUT"
	EnvTmux         = "LAUNCHPROBE_TMUX"
	EnvChrome       = "LAUNCHPROBE_CHROME"
)

// Probe is a parsed probe file.
type Probe struct {
	Driver string   `yaml:"driver"`
	Target string   `yaml:"target"` // binary for terminal, URL for browser
	Args   []string `yaml:"args"`
	Env    []string `yaml:"env"`
	Dir    string   `yaml:"dir"`

	Ready Ready    `yaml:"ready"`
	Keys  []string `yaml:"keys"`

	// RunForEachConfiguration defaults to true when omitted.
	RunForEachConfiguration *bool           `yaml:"run_for_each_configuration"`
	Configurations          []Configuration `yaml:"configurations"`

	Terminal Terminal `yaml:"terminal"`
	Browser  Browser  `yaml:"browser"`
}

// Ready describes when the launched application counts as ready.
type Ready struct {
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	StableFor    time.Duration `yaml:"stable_for"`

	// Terminal matchers; all given matchers must hold.
	Text   string `yaml:"text"`
	Regexp string `yaml:"regexp"`

	// Browser CSS selector.
	Selector string `yaml:"selector"`
}

// Configuration is one declared UI configuration.
type Configuration struct {
	Name       string   `yaml:"name"`
	Args       []string `yaml:"args"`
	Env        []string `yaml:"env"`
	Dir        string   `yaml:"dir"`
	Width      int      `yaml:"width"`
	Height     int      `yaml:"height"`
	Appearance string   `yaml:"appearance"`
	Locale     string   `yaml:"locale"`
}

// Terminal holds terminal driver settings.
type Terminal struct {
	TmuxPath     string `yaml:"tmux_path"`
	HistoryLimit int    `yaml:"history_limit"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
}

// Browser holds browser driver settings.
type Browser struct {
	ChromePath string         `yaml:"chrome_path"`
	Headless   *bool          `yaml:"headless"`
	NoSandbox  bool           `yaml:"no_sandbox"`
	FullPage   bool           `yaml:"full_page"`
	Width      int            `yaml:"width"`
	Height     int            `yaml:"height"`
	Flags      map[string]any `yaml:"flags"`
}

// EachConfiguration reports whether the probe repeats per configuration.
func (p *Probe) EachConfiguration() bool {
	return p.RunForEachConfiguration == nil || *p.RunForEachConfiguration
}

// Load reads, parses and validates the probe file at path, applying
// environment overrides.
func Load(path string) (*Probe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read probe file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse parses and validates a probe file, applying environment overrides.
func Parse(data []byte) (*Probe, error) {
	var p Probe
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse probe file: %w", err)
	}
	if p.Driver == "" {
		p.Driver = DriverTerminal
	}
	if err := p.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Probe) applyEnvOverrides() error {
	if v := os.Getenv(EnvReadyTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvReadyTimeout, err)
		}
		p.Ready.Timeout = d
	}
	if v := os.Getenv(EnvTmux); v != "" {
		p.Terminal.TmuxPath = v
	}
	if v := os.Getenv(EnvChrome); v != "" {
		p.Browser.ChromePath = v
	}
	return nil
}

// Validate reports every problem with the probe, joined.
func (p *Probe) Validate() error {
	var errs []error

	switch p.Driver {
	case DriverTerminal:
		if p.Ready.Selector != "" {
			errs = append(errs, errors.New("ready.selector applies to the browser driver only"))
		}
	case DriverBrowser:
		if p.Ready.Text != "" || p.Ready.Regexp != "" {
			errs = append(errs, errors.New("ready.text and ready.regexp apply to the terminal driver only"))
		}
		if len(p.Keys) > 0 {
			errs = append(errs, errors.New("keys apply to the terminal driver only"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown driver %q (want %s or %s)", p.Driver, DriverTerminal, DriverBrowser))
	}

	if p.Target == "" {
		errs = append(errs, errors.New("target is required"))
	}
	if p.Ready.Timeout < 0 {
		errs = append(errs, fmt.Errorf("ready.timeout must not be negative: %v", p.Ready.Timeout))
	}
	if p.Ready.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("ready.poll_interval must not be negative: %v", p.Ready.PollInterval))
	}
	if p.Ready.StableFor < 0 {
		errs = append(errs, fmt.Errorf("ready.stable_for must not be negative: %v", p.Ready.StableFor))
	}
	if p.Ready.Regexp != "" {
		if _, err := regexp.Compile(p.Ready.Regexp); err != nil {
			errs = append(errs, fmt.Errorf("ready.regexp: %w", err))
		}
	}
	if p.Terminal.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("terminal.history_limit must not be negative: %d", p.Terminal.HistoryLimit))
	}

	seen := make(map[string]bool)
	for i, c := range p.Configurations {
		if c.Name != "" {
			if seen[c.Name] {
				errs = append(errs, fmt.Errorf("configurations[%d]: duplicate name %q", i, c.Name))
			}
			seen[c.Name] = true
		}
		switch c.Appearance {
		case "", "light", "dark":
		default:
			errs = append(errs, fmt.Errorf("configurations[%d]: unknown appearance %q (want light or dark)", i, c.Appearance))
		}
		if c.Width < 0 || c.Height < 0 || (c.Width == 0) != (c.Height == 0) {
			errs = append(errs, fmt.Errorf("configurations[%d]: width and height must both be positive or both omitted", i))
		}
	}

	return errors.Join(errs...)
}
