package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/opinionlab/studyctl/internal/output"
	"github.com/opinionlab/studyctl/pkg/auth/jwt"
	"github.com/opinionlab/studyctl/pkg/studyapi"
	"github.com/spf13/cobra"
)

func newLoginCommand(a *app) *cobra.Command {
	var payload studyapi.LoginPayload

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the issued credentials",
		Long: `Log in with email and password. When --password is omitted the password is
read from the first line of standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if payload.Password == "" {
				password, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("unable to read password: %w", err)
				}
				payload.Password = password
			}

			api, err := a.session()
			if err != nil {
				return err
			}

			resp, err := api.Login(cmd.Context(), payload)
			if errors.Is(err, studyapi.ErrBadRequest) || errors.Is(err, studyapi.ErrUnauthorized) {
				return &output.CLIError{
					Summary:  "login failed",
					Detail:   err.Error(),
					ExitCode: output.ExitAuthError,
				}
			}
			if err != nil {
				return err
			}

			a.printer.Success("logged in as %s <%s>", resp.User.Username, resp.User.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&payload.Email, "email", "", "account email")
	cmd.Flags().StringVar(&payload.Password, "password", "", "account password")
	return cmd
}

func newRegisterCommand(a *app) *cobra.Command {
	var payload studyapi.RegisterPayload

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a platform account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if payload.Password2 == "" {
				payload.Password2 = payload.Password1
			}

			api, err := a.session()
			if err != nil {
				return err
			}

			resp, err := api.Register(cmd.Context(), payload)
			if err != nil {
				return err
			}

			a.printer.Success("%s", resp.Detail)
			a.printer.Info("run 'studyctl login --email %s' to start a session", payload.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&payload.Username, "username", "", "account username")
	cmd.Flags().StringVar(&payload.Email, "email", "", "account email")
	cmd.Flags().StringVar(&payload.Password1, "password", "", "account password")
	cmd.Flags().StringVar(&payload.Password2, "password-confirm", "", "password confirmation, defaults to --password")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the refresh credential and clear the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.session()
			if err != nil {
				return err
			}

			err = api.Logout(cmd.Context())
			// a deliberate logout is not an expired session
			a.expired.Store(false)
			if errors.Is(err, studyapi.ErrNotLoggedIn) {
				a.printer.Info("not logged in")
				return nil
			}
			if err != nil {
				a.printer.Warning("platform logout failed: %s", err.Error())
			}

			a.printer.Success("logged out")
			return nil
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored credentials and when they expire",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}

			pair := a.creds.Pair()
			if pair.Empty() {
				a.printer.Info("not logged in")
				return nil
			}

			a.printer.Print("platform: %s", a.cfg.API.BaseURL)
			table := output.NewTable(a.printer.Out(), []string{"credential", "expires", "state"})
			table.AddRow(credentialRow(a.printer, "access", pair.Access)...)
			table.AddRow(credentialRow(a.printer, "refresh", pair.Refresh)...)
			return table.Render()
		},
	}
}

func credentialRow(p *output.Printer, name, token string) []string {
	if token == "" {
		return []string{name, "-", "missing"}
	}

	expires, err := jwt.ExpiresAt(token)
	if err != nil {
		return []string{name, "-", "unreadable"}
	}

	state := "valid"
	if time.Now().After(expires) {
		state = "expired"
	}
	return []string{name, expires.Local().Format(time.RFC3339), p.StatusBadge(state)}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
