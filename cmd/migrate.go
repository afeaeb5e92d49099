package main

import (
	"fmt"

	"github.com/kerem-kaynak/uvlhub/internal/config"
	"github.com/spf13/cobra"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			db, err := config.InitDB(cfg.Database)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("failed to get database: %w", err)
			}
			defer sqlDB.Close()

			if err := config.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}
