package launchprobe

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Appearance selects the light or dark variant of a target UI.
type Appearance string

// Appearances understood by the built-in drivers.
const (
	AppearanceDefault Appearance = ""
	AppearanceLight   Appearance = "light"
	AppearanceDark    Appearance = "dark"
)

// DefaultConfigurationName names the configuration used when none is declared.
const DefaultConfigurationName = "default"

// Configuration is one declared UI configuration of the target application.
// Drivers apply the fields they understand and ignore the rest.
type Configuration struct {
	Name       string
	Args       []string
	Env        []string
	Dir        string
	Width      int
	Height     int
	Appearance Appearance
	Locale     string
}

func (c Configuration) name() string {
	if c.Name == "" {
		return DefaultConfigurationName
	}
	return c.Name
}

// TestRun is one execution attempt of the probe. It is created by
// Probe.Configure and lives until Probe.Report returns its result.
type TestRun struct {
	// ID uniquely identifies the run.
	ID string

	// Configuration is the UI configuration this run targets.
	Configuration Configuration

	// RunForEachConfiguration records whether the run is one of a set of
	// per-configuration repetitions.
	RunForEachConfiguration bool

	startedAt time.Time
	log       *zap.Logger

	mu          sync.Mutex
	state       State
	handle      *ApplicationHandle
	attachments []Attachment
	err         error
	result      *RunResult
}

func newTestRun(cfg Configuration, each bool, at time.Time, log *zap.Logger) *TestRun {
	cfg.Name = cfg.name()
	id := uuid.NewString()
	return &TestRun{
		ID:                      id,
		Configuration:           cfg,
		RunForEachConfiguration: each,
		startedAt:               at,
		log:                     log.With(zap.String("run_id", id), zap.String("configuration", cfg.Name)),
		state:                   StateUnstarted,
	}
}

// ContinueAfterFailure reports whether the run proceeds past a failed step.
// It is always false: the first failure aborts the remaining steps.
func (r *TestRun) ContinueAfterFailure() bool {
	return false
}

// State returns the current lifecycle state.
func (r *TestRun) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the error that failed the run, if any.
func (r *TestRun) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Attachments returns a copy of the attachments bound to the run.
func (r *TestRun) Attachments() []Attachment {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]Attachment, len(r.attachments))
	copy(cp, r.attachments)
	return cp
}
