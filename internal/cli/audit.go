package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/ports/primary"
	"github.com/example/gendbuntu/internal/wire"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := optionalKind(cmd)
		if err != nil {
			return err
		}
		recordID, _ := cmd.Flags().GetString("record")
		actor, _ := cmd.Flags().GetString("actor")
		action, _ := cmd.Flags().GetString("action")
		limit, _ := cmd.Flags().GetInt("limit")

		_, err = wire.RecordAdapter().Audit(cmd.Context(), primary.AuditFilters{
			Kind:     kind,
			RecordID: recordID,
			Actor:    actor,
			Action:   action,
			Limit:    limit,
		})
		return describeError(err)
	},
}

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Inspect follow-up failures (link, render, notify)",
}

var failuresListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded follow-up failures",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := optionalKind(cmd)
		if err != nil {
			return err
		}
		recordID, _ := cmd.Flags().GetString("record")
		effect, _ := cmd.Flags().GetString("effect")
		open, _ := cmd.Flags().GetBool("open")
		limit, _ := cmd.Flags().GetInt("limit")

		_, err = wire.RecordAdapter().Failures(cmd.Context(), primary.SideEffectFailureFilters{
			Kind:       kind,
			RecordID:   recordID,
			Effect:     effect,
			Unresolved: open,
			Limit:      limit,
		})
		return describeError(err)
	},
}

func optionalKind(cmd *cobra.Command) (record.Kind, error) {
	name, _ := cmd.Flags().GetString("kind")
	if name == "" {
		return "", nil
	}
	return record.ParseKind(name)
}

func init() {
	auditListCmd.Flags().StringP("kind", "k", "", "Filter by record kind")
	auditListCmd.Flags().StringP("record", "r", "", "Filter by record ID")
	auditListCmd.Flags().String("actor", "", "Filter by actor")
	auditListCmd.Flags().String("action", "", "Filter by action (create|update|delete)")
	auditListCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries")

	failuresListCmd.Flags().StringP("kind", "k", "", "Filter by record kind")
	failuresListCmd.Flags().StringP("record", "r", "", "Filter by record ID")
	failuresListCmd.Flags().String("effect", "", "Filter by effect (link|render|notify|unlink)")
	failuresListCmd.Flags().Bool("open", false, "Only failures not resolved yet")
	failuresListCmd.Flags().IntP("limit", "n", 50, "Maximum number of failures")

	auditCmd.AddCommand(auditListCmd)
	failuresCmd.AddCommand(failuresListCmd)
}

// AuditCmd returns the audit command
func AuditCmd() *cobra.Command {
	return auditCmd
}

// FailuresCmd returns the failures command
func FailuresCmd() *cobra.Command {
	return failuresCmd
}
