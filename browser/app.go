package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/cboone/launchprobe"
)

// app is one Chrome process showing the target page.
type app struct {
	ctx    context.Context
	cancel context.CancelFunc

	selector     string
	fullPage     bool
	pollInterval time.Duration

	log *zap.Logger

	mu         sync.Mutex
	terminated bool
}

var _ launchprobe.Application = (*app)(nil)

// run executes actions on the browser, giving up when either ctx or the
// browser context ends.
func (a *app) run(ctx context.Context, actions ...chromedp.Action) error {
	rctx, cancel := context.WithCancel(a.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(rctx, actions...)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}

// WaitReady waits for the ready selector, then polls document.readyState
// until it is "complete".
func (a *app) WaitReady(ctx context.Context) error {
	if err := a.run(ctx, chromedp.WaitReady(a.selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("browser: wait-ready: selector %q: %w", a.selector, err)
	}

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()
	for {
		var state string
		if err := a.run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			return fmt.Errorf("browser: wait-ready: %w", err)
		}
		if state == "complete" {
			a.log.Debug("page ready", zap.String("selector", a.selector))
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("browser: wait-ready: document.readyState %q: %w", state, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Capture takes a PNG screenshot.
func (a *app) Capture(ctx context.Context) (launchprobe.Surface, error) {
	a.mu.Lock()
	terminated := a.terminated
	a.mu.Unlock()
	if terminated {
		return launchprobe.Surface{}, fmt.Errorf("browser: capture: browser closed")
	}

	var (
		buf           []byte
		width, height int64
	)
	var action chromedp.Action = chromedp.CaptureScreenshot(&buf)
	if a.fullPage {
		// Quality 100 keeps the PNG encoding.
		action = chromedp.FullScreenshot(&buf, 100)
	}
	err := a.run(ctx,
		action,
		chromedp.Evaluate(`window.innerWidth`, &width),
		chromedp.Evaluate(`window.innerHeight`, &height),
	)
	if err != nil {
		return launchprobe.Surface{}, fmt.Errorf("browser: capture: %w", err)
	}

	return launchprobe.Surface{
		ContentType: launchprobe.ContentTypePNG,
		Data:        buf,
		Width:       int(width),
		Height:      int(height),
	}, nil
}

// Terminate closes the browser gracefully, then releases the allocator,
// which kills the Chrome process and removes its profile directory.
func (a *app) Terminate(ctx context.Context) error {
	a.mu.Lock()
	if a.terminated {
		a.mu.Unlock()
		return nil
	}
	a.terminated = true
	a.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(a.ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	a.cancel()

	if err != nil {
		return fmt.Errorf("browser: terminate: %w", err)
	}
	a.log.Debug("browser closed")
	return nil
}
