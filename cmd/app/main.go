package main

import (
	"os"

	"github.com/spf13/cobra"

	"salah-reminder-bot/internal/config"
)

// Version information (set at build time via ldflags).
var (
	Version = "dev"
	Commit  = "unknown"
)

var (
	flagConfig string
	flagDev    bool
)

var rootCmd = &cobra.Command{
	Use:   "salah-bot",
	Short: "Telegram prayer time reminder bot",
	Long: `salah-bot sends prayer time reminders to Telegram chats that have
shared a location and subscribed.

Examples:
  salah-bot serve --config config.yaml
  salah-bot timings --lat 21.4225 --lng 39.8262
  salah-bot migrate`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "config.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&flagDev, "dev", false, "enable developer mode (console logs)")
	rootCmd.AddCommand(serveCmd, timingsCmd, migrateCmd)
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(flagConfig, flagDev)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
