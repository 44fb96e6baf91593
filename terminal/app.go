package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cboone/launchprobe"
	"github.com/cboone/launchprobe/internal/tmuxcli"
)

const failureCaptureHistory = 3

// app is one binary running in its own tmux server.
type app struct {
	runner *tmuxcli.Runner
	pane   string
	width  int
	height int

	ready        Matcher
	pollInterval time.Duration
	stableFor    time.Duration

	log *zap.Logger
}

var _ launchprobe.Application = (*app)(nil)

func (a *app) start(ctx context.Context, spec sessionSpec, keys []Key) error {
	if err := startSession(ctx, a.runner, spec); err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, sessionStartTimeout)
	defer cancel()
	if err := a.runner.WaitForSession(sctx); err != nil {
		return err
	}

	pane, err := firstPane(ctx, a.runner)
	if err != nil {
		return err
	}
	a.pane = pane

	if len(keys) > 0 {
		if err := sendKeys(ctx, a.runner, a.pane, keyNames(keys)); err != nil {
			return fmt.Errorf("send startup keys: %w", err)
		}
	}
	return nil
}

// WaitReady polls the pane until the ready matcher holds and the screen has
// not changed for the stable window.
func (a *app) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	var (
		last        *Screen
		stableSince time.Time
		lastDesc    = "matcher condition"
		recent      = make([]*Screen, 0, failureCaptureHistory)
	)

	for {
		state, err := getPaneState(ctx, a.runner, a.pane)
		if err == nil && state.dead {
			recent = appendRecentScreens(recent, a.captureScreenRaw(context.WithoutCancel(ctx)), failureCaptureHistory)
			return &ExitError{Status: state.exitStatus, Waiting: lastDesc, Screens: recent}
		}

		scr, err := a.captureScreen(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return &WaitError{Waiting: lastDesc, Screens: recent, Err: ctx.Err()}
			}
			return fmt.Errorf("terminal: wait-ready: capture failed: %w", err)
		}
		recent = appendRecentScreens(recent, scr, failureCaptureHistory)

		now := time.Now()
		if !scr.Equal(last) {
			stableSince = now
		}
		last = scr

		ok, desc := a.ready(scr)
		lastDesc = desc
		if ok && now.Sub(stableSince) >= a.stableFor {
			a.log.Debug("launch screen ready", zap.String("condition", desc))
			return nil
		}
		if ok {
			lastDesc = fmt.Sprintf("%s, then idle for %v", desc, a.stableFor)
		}

		select {
		case <-ctx.Done():
			return &WaitError{Waiting: lastDesc, Screens: recent, Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

// Capture returns the visible pane as normalized UTF-8 text.
func (a *app) Capture(ctx context.Context) (launchprobe.Surface, error) {
	state, err := getPaneState(ctx, a.runner, a.pane)
	if err != nil {
		return launchprobe.Surface{}, fmt.Errorf("terminal: capture: %w", err)
	}
	if state.dead {
		return launchprobe.Surface{}, fmt.Errorf("terminal: capture: process exited unexpectedly (status %d)", state.exitStatus)
	}

	scr, err := a.captureScreen(ctx)
	if err != nil {
		return launchprobe.Surface{}, fmt.Errorf("terminal: capture: %w", err)
	}

	width, height := scr.Size()
	return launchprobe.Surface{
		ContentType: launchprobe.ContentTypeText,
		Data:        []byte(scr.Normalized()),
		Width:       width,
		Height:      height,
	}, nil
}

// Terminate kills the tmux server and removes its socket and config files.
func (a *app) Terminate(ctx context.Context) error {
	err := killServer(ctx, a.runner)
	if cfg := a.runner.ConfigPath(); cfg != "" {
		_ = os.Remove(cfg)
	}
	_ = os.Remove(a.runner.SocketPath())
	if err != nil {
		return fmt.Errorf("terminal: terminate: %w", err)
	}
	a.log.Debug("session terminated")
	return nil
}

func (a *app) captureScreen(ctx context.Context) (*Screen, error) {
	raw, err := capturePaneContent(ctx, a.runner, a.pane)
	if err != nil {
		return nil, err
	}
	return newScreen(raw, a.width, a.height), nil
}

// captureScreenRaw captures without reporting errors, for diagnostics on
// paths where the pane may be gone.
func (a *app) captureScreenRaw(ctx context.Context) *Screen {
	scr, err := a.captureScreen(ctx)
	if err != nil {
		return nil
	}
	return scr
}

// ExitError reports that the application exited before it became ready.
type ExitError struct {
	Status  int
	Waiting string
	Screens []*Screen
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("terminal: wait-ready: process exited unexpectedly (status %d)\n    waiting for: %s\n    recent screen captures (oldest to newest):\n%s",
		e.Status, e.Waiting, formatRecentScreens(e.Screens))
}

// WaitError reports that readiness was not observed before the context
// ended. It unwraps to the context error.
type WaitError struct {
	Waiting string
	Screens []*Screen
	Err     error
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("terminal: wait-ready: %v\n    waiting for: %s\n    recent screen captures (oldest to newest):\n%s",
		e.Err, e.Waiting, formatRecentScreens(e.Screens))
}

func (e *WaitError) Unwrap() error {
	return e.Err
}

// IsExit reports whether err came from an application exiting early.
func IsExit(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

func appendRecentScreens(screens []*Screen, scr *Screen, limit int) []*Screen {
	if scr == nil {
		return screens
	}
	screens = append(screens, scr)
	if len(screens) > limit {
		screens = screens[len(screens)-limit:]
	}
	return screens
}

func formatRecentScreens(screens []*Screen) string {
	if len(screens) == 0 {
		return "    (no screen captured)"
	}

	var b strings.Builder
	for i, scr := range screens {
		fmt.Fprintf(&b, "    capture %d/%d:\n%s", i+1, len(screens), formatScreenBox(scr))
		if i < len(screens)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// formatScreenBox draws a capture inside a box for error messages.
func formatScreenBox(scr *Screen) string {
	width, _ := scr.Size()
	if width == 0 {
		width = defaultWidth
	}

	var b strings.Builder
	border := strings.Repeat("\u2500", width)

	fmt.Fprintf(&b, "    \u250c%s\u2510\n", border)
	for _, line := range scr.Lines() {
		if len(line) < width {
			line += strings.Repeat(" ", width-len(line))
		}
		fmt.Fprintf(&b, "    \u2502%s\u2502\n", line)
	}
	fmt.Fprintf(&b, "    \u2514%s\u2518", border)

	return b.String()
}
