package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/opinionlab/studyctl/internal/checks"
	"github.com/opinionlab/studyctl/internal/output"
	"github.com/spf13/cobra"
)

func newPingCommand(a *app) *cobra.Command {
	var (
		checkType string
		count     int
		interval  time.Duration
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the platform is reachable",
		Long: `Check the platform base url. http sends a GET to the base url, tcp-full
opens a connection and tcp-half only completes the handshake.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return &output.CLIError{Summary: "--count must be at least 1", ExitCode: output.ExitUsageError}
			}

			checker, err := checks.NewChecker(checkType, a.cfg.API.BaseURL, timeout)
			if err != nil {
				return &output.CLIError{Summary: "unable to create check", Detail: err.Error(), ExitCode: output.ExitUsageError}
			}

			rt := checks.NewRoundtripper()
			var errs []error
			for i := range count {
				if i > 0 {
					select {
					case <-cmd.Context().Done():
						return cmd.Context().Err()
					case <-time.After(interval):
					}
				}

				took, err := rt.Time(checker)
				if err != nil {
					errs = append(errs, err)
					a.printer.Warning("%s %s: %s", checkType, a.cfg.API.BaseURL, err.Error())
					continue
				}
				a.printer.Print("%s %s: ok in %s", checkType, a.cfg.API.BaseURL, took.Round(time.Microsecond))
			}

			a.printer.Print("%d/%d succeeded, average %s", count-len(errs), count, rt.AverageRoundtripTime().Round(time.Microsecond))
			if len(errs) == count {
				return &output.CLIError{
					Summary:  fmt.Sprintf("%s is unreachable", a.cfg.API.BaseURL),
					Detail:   errors.Join(errs...).Error(),
					ExitCode: output.ExitUnreachable,
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&checkType, "type", "http", "check type: http, tcp-full or tcp-half")
	cmd.Flags().IntVarP(&count, "count", "c", 3, "number of checks")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "pause between checks")
	cmd.Flags().DurationVar(&timeout, "check-timeout", checks.DEFAULT_TIMEOUT, "timeout of a single check")
	return cmd
}
