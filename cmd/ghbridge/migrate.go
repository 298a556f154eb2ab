package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ghbridge/internal/storage/postgres"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	resolve := func() (string, error) {
		if databaseURL != "" {
			return databaseURL, nil
		}
		cfg, err := loadConfig()
		if err != nil {
			return "", err
		}
		if cfg.Storage.URL == "" {
			return "", errors.New("database url is required: set --url, storage.url or DATABASE_URL")
		}
		return cfg.Storage.URL, nil
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the relay database schema",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "url", "", "postgres connection string (overrides config)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := resolve()
			if err != nil {
				return err
			}
			if err := postgres.Migrate(url); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the last applied migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := resolve()
			if err != nil {
				return err
			}
			if err := postgres.Rollback(url); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "last migration reverted")
			return nil
		},
	})
	return cmd
}
