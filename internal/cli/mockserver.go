package cli

import (
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/opinionlab/studyctl/internal/config"
	"github.com/opinionlab/studyctl/internal/mockbackend"
	"github.com/opinionlab/studyctl/internal/output"
	"github.com/opinionlab/studyctl/pkg/auth/jwt"
	"github.com/opinionlab/studyctl/pkg/bslog"
	"github.com/spf13/cobra"
)

func newMockServerCommand(a *app) *cobra.Command {
	var (
		seedUsername    string
		seedEmail       string
		seedPassword    string
		accessLifetime  time.Duration
		refreshLifetime time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory platform backend for local development",
		Long: `Run an in-memory backend speaking the platform API, including credential
refresh with rotation. Point studyctl at it with --base-url. A short
--access-lifetime makes the refresh flow easy to watch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []mockbackend.ServerOption{
				mockbackend.WithLogger(a.logger.Slog()),
				mockbackend.WithTokenOptions(
					jwt.WithAccessLifetime(accessLifetime),
					jwt.WithRefreshLifetime(refreshLifetime),
				),
			}
			if seedEmail != "" {
				opts = append(opts, mockbackend.WithAccount(seedUsername, seedEmail, seedPassword))
			}

			srv, err := mockbackend.New([]byte(a.cfg.Mock.JWTSecret), opts...)
			if err != nil {
				return &output.CLIError{Summary: "unable to start mock backend", Detail: err.Error(), ExitCode: output.ExitConfigError}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			bslog.InfoContext(ctx, "mock backend starting",
				slog.String("listen", a.cfg.Mock.ListenAddr),
				slog.Bool("seeded", seedEmail != ""),
				slog.Duration("access_lifetime", accessLifetime),
			)
			a.printer.Info("mock backend on http://%s (ctrl-c to stop)", a.cfg.Mock.ListenAddr)
			return srv.ListenAndServe(ctx, a.cfg.Mock.ListenAddr)
		},
	}

	cmd.Flags().StringVar(&seedUsername, "seed-username", "demo", "username of the seeded account")
	cmd.Flags().StringVar(&seedEmail, "seed-email", "", "email of an account created at startup")
	cmd.Flags().StringVar(&seedPassword, "seed-password", "", "password of the seeded account")
	cmd.Flags().DurationVar(&accessLifetime, "access-lifetime", jwt.DEFAULT_ACCESS_LIFETIME, "lifetime of issued access credentials")
	cmd.Flags().DurationVar(&refreshLifetime, "refresh-lifetime", jwt.DEFAULT_REFRESH_LIFETIME, "lifetime of issued refresh credentials")
	cmd.Flags().String("listen", config.Defaults().Mock.ListenAddr, "listen address")
	return cmd
}
