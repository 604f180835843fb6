package main

import (
	"architect/internal/config"
	"architect/internal/repository/postgres"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	migrateDown  bool
	migrateSteps int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
	Long: `Applies all pending migrations from DB_MIGRATIONS_PATH. With --down the
migrations are rolled back instead; --steps limits how many are applied or
rolled back.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConfig, err := config.LoadDatabaseConfig()
		if err != nil {
			return err
		}
		if dbConfig.Driver == config.DriverMemory {
			return fmt.Errorf("the memory store has no migrations")
		}
		if migrateSteps < 0 {
			return fmt.Errorf("--steps must not be negative")
		}
		return postgres.Migrate(dbConfig.MigrationsPath, dbConfig.GetMigrateURL(), migrateDown, migrateSteps)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "roll back instead of applying")
	migrateCmd.Flags().IntVar(&migrateSteps, "steps", 0, "number of migrations to apply or roll back (0 means all)")
}
