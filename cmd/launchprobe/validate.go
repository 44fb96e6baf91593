package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cboone/launchprobe/internal/config"
)

func newValidateCmd(c *cli) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "validate <probe.yaml>",
		Short: "Check a probe file without launching anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.Load(args[0])
			if err != nil {
				return err
			}
			c.logger.Debug("probe file valid",
				zap.String("probe", args[0]),
				zap.String("driver", p.Driver),
			)

			w := cmd.OutOrStdout()
			if show {
				// Effective settings, after environment overrides.
				data, err := yaml.Marshal(p)
				if err != nil {
					return fmt.Errorf("failed to marshal probe: %w", err)
				}
				_, err = w.Write(data)
				return err
			}

			n := len(p.Configurations)
			if n == 0 || !p.EachConfiguration() {
				n = 1
			}
			fmt.Fprintf(w, "%s: ok (%s driver, %d run(s))\n", args[0], p.Driver, n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "Print the effective probe settings as YAML")
	return cmd
}
