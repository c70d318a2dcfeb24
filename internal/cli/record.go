package cli

import (
	"os"

	"github.com/spf13/cobra"

	cliadapter "github.com/example/gendbuntu/internal/adapters/cli"
	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/ctxutil"
	"github.com/example/gendbuntu/internal/ports/primary"
	"github.com/example/gendbuntu/internal/wire"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Manage numbered operational records",
	Long: `Create, list, and manage interventions, serious incidents, operational
reports, legal PVs and registry PVs.

Kinds accept short aliases: int, inc, cr, legal, registry.
Records are referenced either by ID or by identifier (e.g. INT-2025-000001).`,
	PersistentPreRunE: withActor,
}

var recordCreateCmd = &cobra.Command{
	Use:   "create [kind]",
	Short: "Create and number a new record",
	Example: `  gendbuntu record create int --field type=patrouille --field description="Ronde de nuit"
  gendbuntu record create legal --field type=pve --field description="Stationnement"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, fields, err := kindAndFields(cmd, args[0])
		if err != nil {
			return err
		}
		_, err = wire.RecordAdapter().Create(cmd.Context(), kind, fields, "")
		return describeError(err)
	},
}

var recordShowCmd = &cobra.Command{
	Use:   "show [kind] [id-or-identifier]",
	Short: "Show record details",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := record.ParseKind(args[0])
		if err != nil {
			return err
		}
		_, err = wire.RecordAdapter().Show(cmd.Context(), kind, args[1])
		return describeError(err)
	},
}

var recordListCmd = &cobra.Command{
	Use:   "list [kind]",
	Short: "List records of a kind",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, fields, err := kindAndFields(cmd, args[0])
		if err != nil {
			return err
		}
		status, _ := cmd.Flags().GetString("status")
		createdBy, _ := cmd.Flags().GetString("created-by")
		since, _ := cmd.Flags().GetString("since")
		until, _ := cmd.Flags().GetString("until")
		limit, _ := cmd.Flags().GetInt("limit")

		_, err = wire.RecordAdapter().List(cmd.Context(), kind, primary.RecordFilters{
			Status:    status,
			CreatedBy: createdBy,
			Since:     since,
			Until:     until,
			Fields:    fields,
			Limit:     limit,
		})
		return describeError(err)
	},
}

var recordUpdateCmd = &cobra.Command{
	Use:   "update [kind] [id-or-identifier]",
	Short: "Update record fields (unset fields are kept)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, fields, err := kindAndFields(cmd, args[0])
		if err != nil {
			return err
		}
		return describeError(wire.RecordAdapter().Update(cmd.Context(), kind, args[1], fields))
	},
}

var recordDeleteCmd = &cobra.Command{
	Use:   "delete [kind] [id-or-identifier]",
	Short: "Delete a record",
	Long:  "Delete a record. Deleting a registry PV also deletes the legal PV derived from it.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := record.ParseKind(args[0])
		if err != nil {
			return err
		}
		return describeError(wire.RecordAdapter().Delete(cmd.Context(), kind, args[1]))
	},
}

var recordRenderCmd = &cobra.Command{
	Use:   "render [kind] [id-or-identifier]",
	Short: "Render a record to PDF without storing it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := record.ParseKind(args[0])
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("out")
		_, err = wire.RecordAdapter().Render(cmd.Context(), kind, args[1], dir)
		return describeError(err)
	},
}

var recordDocumentCmd = &cobra.Command{
	Use:   "document [kind] [id-or-identifier]",
	Short: "Print the path of the stored document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := record.ParseKind(args[0])
		if err != nil {
			return err
		}
		_, err = wire.RecordAdapter().Document(cmd.Context(), kind, args[1])
		return describeError(err)
	},
}

var recordRetryCmd = &cobra.Command{
	Use:   "retry [kind] [id-or-identifier]",
	Short: "Re-run follow-ups (link, render, notify) a record is missing",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := record.ParseKind(args[0])
		if err != nil {
			return err
		}
		_, err = wire.RecordAdapter().Retry(cmd.Context(), kind, args[1])
		return describeError(err)
	},
}

var recordLinkCmd = &cobra.Command{
	Use:   "link [registry-id-or-identifier]",
	Short: "Create the legal PV of a registry PV left unlinked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := wire.RecordAdapter().Link(cmd.Context(), args[0])
		return describeError(err)
	},
}

// withActor puts the --actor flag (or GENDBUNTU_ACTOR) into the command context.
func withActor(cmd *cobra.Command, args []string) error {
	actor, _ := cmd.Flags().GetString("actor")
	if actor == "" {
		actor = os.Getenv("GENDBUNTU_ACTOR")
	}
	if actor != "" {
		cmd.SetContext(ctxutil.WithActor(cmd.Context(), actor))
	}
	return nil
}

func kindAndFields(cmd *cobra.Command, kindArg string) (record.Kind, record.Fields, error) {
	kind, err := record.ParseKind(kindArg)
	if err != nil {
		return "", nil, err
	}
	pairs, _ := cmd.Flags().GetStringArray("field")
	fields, err := cliadapter.ParseFields(pairs)
	if err != nil {
		return "", nil, err
	}
	return kind, fields, nil
}

// RecordCmd returns the record command
func RecordCmd() *cobra.Command {
	recordCmd.PersistentFlags().String("actor", "", "Acting user (default: $GENDBUNTU_ACTOR)")

	recordCreateCmd.Flags().StringArrayP("field", "f", nil, "Field value as key=value (repeatable)")
	recordUpdateCmd.Flags().StringArrayP("field", "f", nil, "Field value as key=value (repeatable)")
	recordListCmd.Flags().StringArrayP("field", "f", nil, "Filter on a field as key=value (repeatable)")
	recordListCmd.Flags().StringP("status", "s", "", "Filter by status")
	recordListCmd.Flags().String("created-by", "", "Filter by author")
	recordListCmd.Flags().String("since", "", "Only records created at or after this date")
	recordListCmd.Flags().String("until", "", "Only records created before this date")
	recordListCmd.Flags().IntP("limit", "n", 0, "Maximum number of records")
	recordRenderCmd.Flags().StringP("out", "o", ".", "Directory to write the PDF into")

	recordCmd.AddCommand(recordCreateCmd)
	recordCmd.AddCommand(recordShowCmd)
	recordCmd.AddCommand(recordListCmd)
	recordCmd.AddCommand(recordUpdateCmd)
	recordCmd.AddCommand(recordDeleteCmd)
	recordCmd.AddCommand(recordRenderCmd)
	recordCmd.AddCommand(recordDocumentCmd)
	recordCmd.AddCommand(recordRetryCmd)
	recordCmd.AddCommand(recordLinkCmd)

	return recordCmd
}
