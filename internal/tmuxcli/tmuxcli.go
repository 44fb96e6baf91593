// Package tmuxcli runs tmux commands against a private server socket. It is
// internal to the terminal driver.
package tmuxcli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner executes tmux commands against a specific server socket.
type Runner struct {
	tmuxPath   string
	socketPath string
	configPath string
	log        *zap.Logger
}

// New creates a Runner bound to the given tmux binary and socket path.
// A nil logger discards command traces.
func New(tmuxPath, socketPath string, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		tmuxPath:   tmuxPath,
		socketPath: socketPath,
		log:        log.Named("tmux").With(zap.String("socket", socketPath)),
	}
}

// SetConfigPath sets the path to a tmux config file. When set, every
// invocation passes -f <configPath> before other arguments.
func (r *Runner) SetConfigPath(path string) {
	r.configPath = path
}

// ConfigPath returns the config file path, or "" if none is set.
func (r *Runner) ConfigPath() string {
	return r.configPath
}

// SocketPath returns the socket path used by this runner.
func (r *Runner) SocketPath() string {
	return r.socketPath
}

// TmuxPath returns the path to the tmux binary.
func (r *Runner) TmuxPath() string {
	return r.tmuxPath
}

// Run executes a tmux command and returns its stdout. A failing command
// yields an *Error carrying stderr.
func (r *Runner) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := make([]string, 0, len(args)+4)
	if r.configPath != "" {
		fullArgs = append(fullArgs, "-f", r.configPath)
	}
	fullArgs = append(fullArgs, "-S", r.socketPath)
	fullArgs = append(fullArgs, args...)
	cmd := exec.CommandContext(ctx, r.tmuxPath, fullArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	op := ""
	if len(args) > 0 {
		op = args[0]
	}

	if err := cmd.Run(); err != nil {
		e := &Error{
			Op:     op,
			Args:   fullArgs,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
		r.log.Debug("command failed", zap.String("op", op), zap.Error(e))
		return "", e
	}

	return stdout.String(), nil
}

// WaitForSession polls until the server has a pane or ctx is done.
func (r *Runner) WaitForSession(ctx context.Context) error {
	for {
		_, err := r.Run(ctx, "list-panes", "-F", "#{pane_id}")
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("tmux session not ready: %w (last error: %v)", ctx.Err(), err)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Error represents a tmux command failure.
type Error struct {
	Op     string
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("tmux %s failed: %v", e.Op, e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NoServer reports whether the failure means the server is not running.
func (e *Error) NoServer() bool {
	return strings.Contains(e.Stderr, "no server running") ||
		strings.Contains(e.Stderr, "error connecting to")
}

// Version runs "tmux -V" and returns the version string (e.g. "3.4").
func Version(ctx context.Context, tmuxPath string) (string, error) {
	cmd := exec.CommandContext(ctx, tmuxPath, "-V")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tmux -V failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	// "tmux 3.4" or "tmux next-3.5"
	output := strings.TrimSpace(stdout.String())
	return strings.TrimPrefix(output, "tmux "), nil
}
