package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/gendbuntu/internal/app"
	"github.com/example/gendbuntu/internal/config"
	"github.com/example/gendbuntu/internal/db"
	"github.com/example/gendbuntu/internal/wire"
)

// DevCmd returns the dev command group for development utilities.
func DevCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Development utilities",
		Long: `Development utilities for working with a local gendbuntu database.

These commands require GENDBUNTU_DEV=1 to prevent accidental modification
of a production database.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv("GENDBUNTU_DEV") == "" {
				return fmt.Errorf("GENDBUNTU_DEV not set\n\nThis safety check prevents accidental changes to your production database")
			}
			return nil
		},
	}

	cmd.AddCommand(devResetCmd())
	return cmd
}

func devResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the SQLite database with fresh fixtures",
		Long: `Delete the SQLite database and recreate it with fixture records.

This command:
1. Deletes the configured SQLite database file
2. Creates a fresh database with the current schema
3. Creates one or two records of every kind through the normal create path`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = "."
			}
			cfg, err := config.LoadConfig(dir)
			if err != nil {
				return err
			}
			dialect, err := db.ParseDialect(cfg.Database.Driver)
			if err != nil {
				return err
			}
			if dialect != db.DialectSQLite {
				return fmt.Errorf("dev reset only supports sqlite, configured driver is %s", cfg.Database.Driver)
			}

			// Confirmation unless --force
			if !force {
				fmt.Printf("This will delete and recreate: %s\n", cfg.Database.DSN)
				fmt.Print("Continue? [y/N] ")
				var response string
				fmt.Scanln(&response)
				if response != "y" && response != "Y" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			if err := os.Remove(cfg.Database.DSN); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to delete database: %w", err)
			}
			fmt.Printf("✓ Deleted %s\n", cfg.Database.DSN)

			created, err := app.SeedFixtures(cmd.Context(), wire.RecordService(), "dev")
			if err != nil {
				return fmt.Errorf("failed to seed fixtures: %w", err)
			}
			fmt.Println("✓ Seeded fixture data")
			fmt.Println()
			for _, rec := range created {
				fmt.Printf("  - %-20s %s\n", rec.Kind, rec.Identifier)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}
