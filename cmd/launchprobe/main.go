// Command launchprobe launches an application once per declared UI
// configuration, waits for it to become ready, and captures its launch
// screen.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cboone/launchprobe/internal/logging"
)

// cli holds global flags and the logger shared by subcommands.
type cli struct {
	verbose   bool
	logFormat string

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "launchprobe",
		Short: "Launch an application and capture its launch screen",
		Long: `launchprobe runs a launch test described by a probe file: it starts the
application, waits until it is ready, captures the launch screen and
reports a pass/fail result for every UI configuration.

Terminal applications run inside an isolated tmux server; web applications
run in headless Chrome.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(c.verbose, c.logFormat)
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", logging.FormatJSON, "Log format: json or console")

	root.AddCommand(newRunCmd(c), newValidateCmd(c))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
