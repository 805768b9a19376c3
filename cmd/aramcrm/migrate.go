package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/infohyun/aramcrm-sub001/pkg/adapters/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the postgres schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is not set")
		}

		if status, _ := cmd.Flags().GetBool("status"); status {
			v, err := postgres.MigrationStatus(cmd.Context(), cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
			return nil
		}

		if err := postgres.ApplyMigrations(cmd.Context(), cfg.Postgres.DSN); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "Print the current schema version instead of migrating")
}
