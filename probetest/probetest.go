// Package probetest provides helpers for running launch probes inside Go
// tests: a scriptable fake Launcher, a Run helper that fails the test on a
// failed result, and golden-file comparison for text attachments.
package probetest

import (
	"context"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"go.uber.org/zap/zaptest"

	"github.com/cboone/launchprobe"
)

// Run runs one probe for cfg and fails the test if the run fails.
// The probe logs through t. Caller options are applied after the logger, so
// WithLogger in opts wins.
func Run(t testing.TB, l launchprobe.Launcher, cfg launchprobe.Configuration, opts ...launchprobe.Option) *launchprobe.RunResult {
	t.Helper()

	all := append([]launchprobe.Option{launchprobe.WithLogger(zaptest.NewLogger(t))}, opts...)
	probe := launchprobe.New(l, all...)

	res := probe.Run(context.Background(), cfg)
	if !res.Passed() {
		t.Fatalf("launchprobe: run %s (%s) failed in state %s: %v",
			res.RunID, res.Configuration.Name, res.FinalState, res.Err)
	}
	if res.TeardownErr != nil {
		t.Errorf("launchprobe: run %s: teardown: %v", res.RunID, res.TeardownErr)
	}
	return res
}

// LaunchScreen returns the single "Launch Screen" attachment of a passing
// result, failing the test if there is not exactly one.
func LaunchScreen(t testing.TB, res *launchprobe.RunResult) launchprobe.Attachment {
	t.Helper()

	if len(res.Attachments) != 1 {
		t.Fatalf("launchprobe: want 1 attachment, got %d", len(res.Attachments))
	}
	a := res.Attachments[0]
	if a.Name != launchprobe.LaunchScreenName {
		t.Fatalf("launchprobe: attachment name = %q, want %q", a.Name, launchprobe.LaunchScreenName)
	}
	return a
}

// MatchGolden compares a text attachment with testdata/golden/<name>.golden.
// Run the test with -update to create or refresh the golden file.
func MatchGolden(t *testing.T, name string, a launchprobe.Attachment) {
	t.Helper()

	if !strings.HasPrefix(a.Artifact.ContentType, "text/") {
		t.Fatalf("launchprobe: golden: %q is %s, not text", a.Name, a.Artifact.ContentType)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Normalize(a.Artifact.Data))
}

// Normalize trims trailing spaces on every line and trailing blank lines,
// and ends the text with a single newline, so captures diff stably.
func Normalize(data []byte) []byte {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}
