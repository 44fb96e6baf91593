package terminal

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/cboone/launchprobe/internal/tmuxcli"
)

const (
	minTmuxVersion = "3.0"

	// tmuxEnv overrides the PATH lookup for tmux.
	tmuxEnv = "LAUNCHPROBE_TMUX"
)

// resolveTmuxPath picks the tmux binary: the configured path, then
// $LAUNCHPROBE_TMUX, then a PATH lookup.
func resolveTmuxPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if envPath := os.Getenv(tmuxEnv); envPath != "" {
		return envPath, nil
	}
	found, err := exec.LookPath("tmux")
	if err != nil {
		return "", fmt.Errorf("tmux not found: %w", err)
	}
	return found, nil
}

// checkTmuxVersion verifies the tmux version meets the minimum requirement.
func checkTmuxVersion(ctx context.Context, tmuxPath string) error {
	version, err := tmuxcli.Version(ctx, tmuxPath)
	if err != nil {
		return err
	}
	if !versionAtLeast(version, minTmuxVersion) {
		return fmt.Errorf("tmux version %s is below minimum %s", version, minTmuxVersion)
	}
	return nil
}

// versionRe finds major.minor in strings like "3.4", "next-3.5", "3.3a".
var versionRe = regexp.MustCompile(`(\d+)\.(\d+)`)

func versionAtLeast(version, minVersion string) bool {
	parse := func(v string) (int, int, bool) {
		m := versionRe.FindStringSubmatch(v)
		if m == nil {
			return 0, 0, false
		}
		major, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		return major, minor, true
	}

	vMajor, vMinor, ok1 := parse(version)
	mMajor, mMinor, ok2 := parse(minVersion)
	if !ok1 || !ok2 {
		return false
	}
	if vMajor != mMajor {
		return vMajor > mMajor
	}
	return vMinor >= mMinor
}

// generateSocketPath creates a unique socket path under os.TempDir.
func generateSocketPath(name string) (string, error) {
	sanitized := sanitizeName(name)
	b := make([]byte, 4)

	for i := 0; i < 10; i++ {
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("generate socket suffix: %w", err)
		}
		path := filepath.Join(os.TempDir(),
			fmt.Sprintf("launchprobe-%s-%s.sock", sanitized, hex.EncodeToString(b)))
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
	}
	return "", errors.New("could not generate unique socket path after 10 attempts")
}

// sanitizeName replaces characters that are not filesystem-safe.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	// Unix socket paths are limited to 104/108 bytes.
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}

// writeConfig writes the tmux config: fixed history, dead panes stay
// inspectable, no status line in captures.
func writeConfig(configPath string, historyLimit int) error {
	config := fmt.Sprintf("set-option -g history-limit %d\nset-option -g remain-on-exit on\nset-option -g status off\n", historyLimit)
	if err := os.WriteFile(configPath, []byte(config), 0o600); err != nil {
		return fmt.Errorf("write tmux config: %w", err)
	}
	return nil
}

// sessionSpec describes the command started in the tmux session.
type sessionSpec struct {
	binary string
	args   []string
	env    []string
	dir    string
	width  int
	height int
}

// command returns the binary and arguments to run, wrapping the binary in
// /usr/bin/env when environment variables are set.
func (s sessionSpec) command() (string, []string) {
	if len(s.env) == 0 {
		return s.binary, s.args
	}
	args := make([]string, 0, len(s.env)+1+len(s.args))
	args = append(args, s.env...)
	args = append(args, s.binary)
	args = append(args, s.args...)
	return "/usr/bin/env", args
}

func startSession(ctx context.Context, runner *tmuxcli.Runner, spec sessionSpec) error {
	args := []string{
		"new-session", "-d",
		"-x", strconv.Itoa(spec.width),
		"-y", strconv.Itoa(spec.height),
	}
	if spec.dir != "" {
		args = append(args, "-c", spec.dir)
	}

	binary, binArgs := spec.command()
	args = append(args, "--", binary)
	args = append(args, binArgs...)

	if _, err := runner.Run(ctx, args...); err != nil {
		return fmt.Errorf("start tmux session: %w", err)
	}
	return nil
}

func firstPane(ctx context.Context, runner *tmuxcli.Runner) (string, error) {
	output, err := runner.Run(ctx, "list-panes", "-F", "#{pane_id}")
	if err != nil {
		return "", fmt.Errorf("get pane ID: %w", err)
	}
	pane := strings.TrimSpace(output)
	if pane == "" {
		return "", errors.New("get pane ID: no pane")
	}
	return pane, nil
}

func capturePaneContent(ctx context.Context, runner *tmuxcli.Runner, pane string) (string, error) {
	return runner.Run(ctx, "capture-pane", "-p", "-t", pane)
}

func sendKeys(ctx context.Context, runner *tmuxcli.Runner, pane string, keys []string) error {
	args := append([]string{"send-keys", "-t", pane}, keys...)
	_, err := runner.Run(ctx, args...)
	return err
}

// paneState holds the dead status and exit code of a pane.
type paneState struct {
	dead       bool
	exitStatus int
}

func getPaneState(ctx context.Context, runner *tmuxcli.Runner, pane string) (paneState, error) {
	output, err := runner.Run(ctx, "list-panes", "-t", pane, "-F", "#{pane_dead} #{pane_dead_status}")
	if err != nil {
		return paneState{}, err
	}

	parts := strings.SplitN(strings.TrimSpace(output), " ", 2)
	dead := parts[0] == "1"
	status := 0
	if dead && len(parts) >= 2 {
		status, _ = strconv.Atoi(parts[1])
	}
	return paneState{dead: dead, exitStatus: status}, nil
}

// killServer stops the tmux server. A server that is already gone counts as
// stopped.
func killServer(ctx context.Context, runner *tmuxcli.Runner) error {
	_, err := runner.Run(ctx, "kill-server")
	var tmuxErr *tmuxcli.Error
	if errors.As(err, &tmuxErr) && tmuxErr.NoServer() {
		return nil
	}
	return err
}
