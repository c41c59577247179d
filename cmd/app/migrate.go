package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"salah-reminder-bot/internal/config"
	pg "salah-reminder-bot/internal/infra/db/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the Postgres schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Storage.Driver != config.DriverPostgres || cfg.Database.URL == "" {
			return errors.New("migrate needs storage.driver=postgres and database.url")
		}
		pool, err := pg.Connect(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := pg.Migrate(cmd.Context(), pool); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}
