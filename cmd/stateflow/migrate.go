package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/soochol/stateflow/internal/db"
)

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the PostgreSQL schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database.url (or STATEFLOW_DATABASE_URL) is required")
			}
			database, err := db.New(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer database.Close()
			if err := database.Migrate(cmd.Context()); err != nil {
				return err
			}
			slog.Info("migrations applied")
			return nil
		},
	}
}
