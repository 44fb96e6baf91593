package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cboone/launchprobe"
	"github.com/cboone/launchprobe/internal/config"
	"github.com/cboone/launchprobe/internal/report"
)

func newRunCmd(c *cli) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "run <probe.yaml>",
		Short: "Run the launch test described by a probe file",
		Long: `Runs the launch test once per configuration in the probe file (or once,
when run_for_each_configuration is false) and prints one line per run.

With --out, each launch screen is written under the directory together with
a results.json manifest.

Exits non-zero when any run fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.Load(args[0])
			if err != nil {
				return err
			}

			l, err := newLauncher(p, c.logger)
			if err != nil {
				return err
			}

			opts := []launchprobe.Option{
				launchprobe.WithLogger(c.logger),
				launchprobe.WithReadyTimeout(p.Ready.Timeout),
				launchprobe.WithRunForEachConfiguration(p.EachConfiguration()),
			}
			if out != "" {
				dir, err := report.NewDir(out, c.logger)
				if err != nil {
					return err
				}
				opts = append(opts, launchprobe.WithSink(dir))
			}

			probe := launchprobe.New(l, opts...)
			results := probe.RunAll(cmd.Context(), configurations(p)...)

			failed := printResults(cmd.OutOrStdout(), results)
			c.logger.Info("launch test finished",
				zap.String("probe", args[0]),
				zap.Int("runs", len(results)),
				zap.Int("failed", failed),
			)
			if failed > 0 {
				return fmt.Errorf("%d of %d runs failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Directory for launch screens and results.json")
	return cmd
}

// printResults writes one line per run and returns the number of failures.
func printResults(w io.Writer, results []*launchprobe.RunResult) int {
	failed := 0
	for _, res := range results {
		d := res.Duration.Round(time.Millisecond)
		if res.Passed() {
			a := res.Attachments[0].Artifact
			fmt.Fprintf(w, "PASS  %s  %s  %s %dx%d  (%d bytes)\n",
				res.Configuration.Name, d, a.ContentType, a.Width, a.Height, len(a.Data))
		} else {
			failed++
			fmt.Fprintf(w, "FAIL  %s  %s  %v\n", res.Configuration.Name, d, res.Err)
		}
		if res.TeardownErr != nil {
			fmt.Fprintf(w, "      teardown: %v\n", res.TeardownErr)
		}
	}
	return failed
}
