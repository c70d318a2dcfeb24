package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/gendbuntu/internal/config"
	"github.com/example/gendbuntu/internal/db"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the gendbuntu configuration and database",
		Long: `Write .gendbuntu/config.yaml in the current directory (if missing) and
create or upgrade the database schema it points to.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to get working directory: %w", err)
				}
				dir = wd
			}
			return runInit(cmd, dir)
		},
	}
}

func runInit(cmd *cobra.Command, dir string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return err
	}

	if _, err := os.Stat(config.Path(dir)); errors.Is(err, fs.ErrNotExist) {
		if err := config.SaveConfig(dir, cfg); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Config written to %s\n", config.Path(dir))
	} else {
		fmt.Fprintf(out, "✓ Using existing config %s\n", config.Path(dir))
	}

	dialect, err := db.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return err
	}
	conn, err := db.Open(dialect, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Fprintf(out, "✓ Database ready (%s, schema v%d)\n", dialect, db.LatestVersion())
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  gendbuntu record create int --field type=patrouille --field description=\"Ronde\"")
	fmt.Fprintln(out, "  gendbuntu record list int")
	return nil
}
