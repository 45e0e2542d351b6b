package cli

import (
	"context"
	"errors"
	"io"

	"github.com/opinionlab/studyctl/internal/config"
	"github.com/opinionlab/studyctl/internal/output"
	"github.com/opinionlab/studyctl/pkg/rest/request/client"
	"github.com/opinionlab/studyctl/pkg/studyapi"
	"github.com/opinionlab/studyctl/pkg/validation"
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "studyctl",
		Short: "Command line client for the silicon survey platform",
		Long: `studyctl talks to the survey platform API. Expired access credentials are
refreshed transparently; when the refresh credential is rejected the local
session is cleared and you are asked to log in again.

Example usage:
  studyctl login --email you@example.com
  studyctl projects list
  studyctl dashboard
  studyctl cost --model gpt-4o --people 50 --file questions.csv
  studyctl mock-server --seed-email you@example.com --seed-password secret123`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	config.RegisterFlags(root.PersistentFlags())
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write client metrics in text format to this file")

	root.AddCommand(
		newLoginCommand(a),
		newRegisterCommand(a),
		newLogoutCommand(a),
		newStatusCommand(a),
		newProjectsCommand(a),
		newModelsCommand(a),
		newDashboardCommand(a),
		newCostCommand(a),
		newPingCommand(a),
		newMockServerCommand(a),
	)

	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := newRootCommand(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if a.cfg != nil {
		a.teardown()
	}
	if err == nil {
		return output.ExitSuccess
	}

	cliErr := asCLIError(err, a.expired.Load())
	printer := a.printer
	if printer == nil {
		printer = output.NewPrinter(stdout, stderr, false)
	}
	printer.FormatError(cliErr)
	return cliErr.ExitCode
}

func asCLIError(err error, sessionExpired bool) *output.CLIError {
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	var validationErr *validation.ValidationError
	var apiErr *studyapi.APIError

	switch {
	case errors.Is(err, client.ErrSessionTerminated):
		return sessionExpiredError(err)
	case errors.Is(err, studyapi.ErrNotLoggedIn), errors.Is(err, studyapi.ErrUnauthorized):
		return &output.CLIError{
			Summary:    "not logged in",
			Detail:     err.Error(),
			Suggestion: "run 'studyctl login'",
			ExitCode:   output.ExitAuthError,
		}
	case errors.As(err, &validationErr):
		return &output.CLIError{
			Summary:  "invalid input",
			Detail:   validationErr.Error(),
			ExitCode: output.ExitUsageError,
		}
	case errors.As(err, &apiErr):
		return &output.CLIError{
			Summary:  "request rejected by the platform",
			Detail:   apiErr.Error(),
			ExitCode: output.ExitGeneral,
		}
	case sessionExpired:
		return sessionExpiredError(err)
	}

	return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitGeneral}
}

func sessionExpiredError(err error) *output.CLIError {
	return &output.CLIError{
		Summary:    "session expired",
		Detail:     err.Error(),
		Suggestion: "run 'studyctl login' to start a new session",
		ExitCode:   output.ExitAuthError,
	}
}
