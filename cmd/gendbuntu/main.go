package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/gendbuntu/internal/cli"
	"github.com/example/gendbuntu/internal/version"
	"github.com/example/gendbuntu/internal/wire"
)

func main() {
	// Root and record commands both have pre-run hooks.
	cobra.EnableTraverseRunHooks = true

	rootCmd := &cobra.Command{
		Use:     "gendbuntu",
		Short:   "gendbuntu - numbered operational records",
		Version: version.String(),
		Long: `gendbuntu numbers and files interventions, serious incidents, operational
reports and procès-verbaux. Registry PVs are cross-linked with the legal PV
derived from them; reports are rendered to PDF and posted to the team webhook.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringP("dir", "C", "", "Directory holding .gendbuntu/ (default: current directory)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
			wire.SetWorkDir(dir)
		}
	}

	// Add subcommands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.RecordCmd())
	rootCmd.AddCommand(cli.AuditCmd())
	rootCmd.AddCommand(cli.FailuresCmd())

	// Developer tools
	rootCmd.AddCommand(cli.DevCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if cerr := wire.Close(); cerr != nil {
		fmt.Fprintln(os.Stderr, cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
