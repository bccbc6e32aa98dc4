package main

import (
	"errors"
	"fmt"

	"github.com/bissquit/pagelite/internal/config"
	"github.com/bissquit/pagelite/internal/pkg/postgres"
	"github.com/bissquit/pagelite/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL schema migrations",
		Long: `Apply all pending up migrations to database.url.

Only the postgres storage driver uses migrations; the sqlite driver creates
its schema on open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Storage.Driver != config.DriverPostgres {
				return errors.New("migrate requires storage.driver=postgres")
			}
			return postgres.Migrate(migrations.FS, cfg.Database.URL)
		},
	}
}
