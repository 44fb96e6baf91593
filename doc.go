// Package launchprobe provides a launch-and-capture smoke test for
// applications.
//
// A [Probe] drives one instance of a target application through a cold
// start, waits for it to become ready, captures its surface and returns the
// capture as an [Attachment] on a [RunResult]. The target is reached only
// through a [Launcher], so the same probe works against a terminal program
// (package terminal), a web page (package browser) or a fake (package
// probetest).
//
// # Quick Start
//
//	launcher := terminal.NewLauncher("./my-app",
//		terminal.WithReady(terminal.Text("Sign in")),
//	)
//	probe := launchprobe.New(launcher, launchprobe.WithLogger(logger))
//	for _, res := range probe.RunAll(ctx, launchprobe.Configuration{Name: "light"}) {
//		if !res.Passed() {
//			log.Printf("%s: %v", res.Configuration.Name, res.Err)
//		}
//	}
//
// # Run Lifecycle
//
// Each [TestRun] moves through a fixed sequence of states:
//
//	Unstarted → Launching → AwaitingReady → Capturing → Attached → Reported
//
// Any error moves the run to Failed instead. Reported and Failed are
// terminal. The application is terminated when a run enters Failed and again
// (idempotently) by [Probe.Report], so every exit path releases the instance.
// Runs never continue after a failure and steps are never retried.
//
// # Waiting
//
// [Probe.AwaitReady] bounds the wait with the ready timeout:
//
//   - Default: 10s
//   - Override: [WithReadyTimeout]
//   - Negative values are rejected by [New]
//   - An outer deadline on the caller's context also applies
//
// Expiry is reported as a [*TimeoutError]. An application that exits before
// it becomes ready is reported as a [*LaunchError].
//
// # Configurations
//
// [Probe.RunAll] repeats the probe once per [Configuration] when
// RunForEachConfiguration is set (the default). Repetitions run one after
// another, each with its own run ID and application handle.
//
// # Attachments
//
// A passing run carries exactly one attachment named "Launch Screen" with
// [KeepAlways] retention. Failed runs carry none. Results are returned to
// the caller and, when configured, handed to a [Sink]; the probe keeps no
// report state of its own.
package launchprobe
