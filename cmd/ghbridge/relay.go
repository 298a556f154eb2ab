package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ghbridge/internal/app"
)

func newRelayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Run the OAuth authorization relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateRelay(); err != nil {
				return err
			}

			log := setupLogger(cfg.Env)
			log.Info("starting relay",
				slog.String("env", cfg.Env),
				slog.Int("port", cfg.HTTP.Port),
				slog.String("storage", cfg.Storage.Driver),
				slog.String("ledger", cfg.Ledger.Backend),
				slog.String("sealer", cfg.Sealer.Kind),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.NewRelay(ctx, log, cfg)
			if err != nil {
				return err
			}
			return application.Run(ctx)
		},
	}
}

