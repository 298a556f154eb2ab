package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ghbridge/internal/app"
)

func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateBot(); err != nil {
				return err
			}

			log := setupLogger(cfg.Env)
			log.Info("starting bot", slog.String("env", cfg.Env), slog.String("sessions", cfg.Session.Backend))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.NewBot(ctx, log, cfg)
			if err != nil {
				return err
			}
			return application.Run(ctx)
		},
	}
}
