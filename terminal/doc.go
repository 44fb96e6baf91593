// Package terminal launches terminal programs for launchprobe.
//
// Each launch gets a dedicated tmux server on a unique socket under
// os.TempDir, started with a temporary config that sets remain-on-exit on,
// status off and a fixed history-limit. Terminate runs kill-server and
// removes the socket and config.
//
// # Readiness
//
// The launch screen is ready when the [Matcher] set with [WithReady] holds
// and the screen has not changed for the stable window ([WithStableFor],
// default 250ms). The pane is sampled every 50ms by default
// ([WithPollInterval]); intervals under 10ms are clamped to 10ms.
//
// If the program exits while waiting, WaitReady returns an [*ExitError];
// if the context ends first it returns a [*WaitError]. Both carry the most
// recent screen captures, oldest to newest.
//
// # Configurations
//
// A launchprobe.Configuration maps onto the session as follows:
//
//   - Width and Height set the pane size (both must be positive)
//   - Args and Env are appended after the launcher's own
//   - Appearance sets COLORFGBG (dark "15;0", light "0;15")
//   - Locale sets LANG and LC_ALL, adding ".UTF-8" when no encoding is given
//
// # Requirements
//
// tmux 3.0+ on Linux or macOS. tmux is resolved from [WithTmuxPath], then
// LAUNCHPROBE_TMUX, then PATH.
package terminal
