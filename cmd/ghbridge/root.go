package main

import (
	"github.com/spf13/cobra"

	"ghbridge/internal/config"
)

// configPath is set by the persistent --config flag; empty means CONFIG_PATH
// or the environment alone.
var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ghbridge",
		Short: "Telegram to GitHub Issues bridge",
		Long: `ghbridge lets members of a GitHub organization manage issues of one
repository from Telegram.

  ghbridge relay     runs the OAuth authorization relay
  ghbridge bot       runs the Telegram bot
  ghbridge migrate   manages the relay database schema`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default $CONFIG_PATH)")

	root.AddCommand(newRelayCmd())
	root.AddCommand(newBotCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
