// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle argument parsing, output formatting,
// but delegate business logic to services.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/example/gendbuntu/internal/core/numbering"
	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/ports/primary"
)

// RecordAdapter is a thin adapter that translates CLI operations to RecordService calls.
// It depends only on the RecordService interface, enabling easy testing with mocks.
type RecordAdapter struct {
	service primary.RecordService
	out     io.Writer
}

// NewRecordAdapter creates a new RecordAdapter with the given service.
func NewRecordAdapter(service primary.RecordService, out io.Writer) *RecordAdapter {
	return &RecordAdapter{
		service: service,
		out:     out,
	}
}

// ParseFields turns repeated key=value flags into fields.
func ParseFields(pairs []string) (record.Fields, error) {
	fields := record.Fields{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", p)
		}
		fields[k] = v
	}
	return fields, nil
}

// Create creates a record and reports its follow-ups.
func (a *RecordAdapter) Create(ctx context.Context, kind record.Kind, fields record.Fields, actor string) (*primary.Record, error) {
	rec, err := a.service.CreateRecord(ctx, primary.CreateRecordRequest{
		Kind:   kind,
		Fields: fields,
		Actor:  actor,
	})
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "✓ Created %s %s\n", kind, rec.Identifier)
	fmt.Fprintf(a.out, "  ID: %s\n", rec.ID)
	if rec.LinkedID != "" {
		fmt.Fprintf(a.out, "  Linked: %s\n", rec.LinkedID)
	}
	if rec.DocumentPath != "" {
		fmt.Fprintf(a.out, "  Document: %s\n", rec.DocumentPath)
	}
	a.printPending(rec)
	return rec, nil
}

// Show displays details for a single record. ref is an ID or an identifier.
func (a *RecordAdapter) Show(ctx context.Context, kind record.Kind, ref string) (*primary.Record, error) {
	rec, err := a.resolve(ctx, kind, ref)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "\n%s: %s\n", kind, rec.Identifier)
	fmt.Fprintf(a.out, "ID:      %s\n", rec.ID)
	fmt.Fprintf(a.out, "Status:  %s\n", rec.Status)
	fmt.Fprintf(a.out, "Author:  %s\n", rec.CreatedBy)
	fmt.Fprintf(a.out, "Created: %s\n", rec.CreatedAt)
	fmt.Fprintf(a.out, "Updated: %s\n", rec.UpdatedAt)

	keys := make([]string, 0, len(rec.Fields))
	for k := range rec.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(a.out, "  %s: %s\n", k, rec.Fields[k])
	}
	if rec.LinkedID != "" {
		fmt.Fprintf(a.out, "Linked:  %s\n", rec.LinkedID)
	}
	if rec.DocumentPath != "" {
		fmt.Fprintf(a.out, "Document: %s\n", rec.DocumentPath)
	}
	if rec.NotificationSent {
		fmt.Fprintf(a.out, "Notified: %s\n", rec.NotifiedAt)
	}
	a.printPending(rec)
	fmt.Fprintln(a.out)
	return rec, nil
}

// List lists records of a kind.
func (a *RecordAdapter) List(ctx context.Context, kind record.Kind, filters primary.RecordFilters) ([]*primary.Record, error) {
	recs, err := a.service.ListRecords(ctx, kind, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	if len(recs) == 0 {
		fmt.Fprintf(a.out, "No %s records found.\n", kind)
		return recs, nil
	}

	headline := record.MustLookup(kind).HeadlineField
	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "IDENTIFIER\tSTATUS\tAUTHOR\tCREATED\tSUMMARY")
	fmt.Fprintln(w, "----------\t------\t------\t-------\t-------")
	for _, rec := range recs {
		summary := rec.Fields[headline]
		if len(rec.Pending) > 0 {
			summary += " " + color.New(color.FgYellow).Sprintf("[pending: %s]", strings.Join(rec.Pending, ","))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.Identifier,
			rec.Status,
			rec.CreatedBy,
			rec.CreatedAt,
			summary,
		)
	}
	w.Flush()
	return recs, nil
}

// Update applies a partial update.
func (a *RecordAdapter) Update(ctx context.Context, kind record.Kind, ref string, fields record.Fields) error {
	current, err := a.resolve(ctx, kind, ref)
	if err != nil {
		return err
	}
	rec, err := a.service.UpdateRecord(ctx, primary.UpdateRecordRequest{
		Kind:   kind,
		ID:     current.ID,
		Fields: fields,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Updated %s %s (status: %s)\n", kind, rec.Identifier, rec.Status)
	return nil
}

// Delete deletes a record.
func (a *RecordAdapter) Delete(ctx context.Context, kind record.Kind, ref string) error {
	current, err := a.resolve(ctx, kind, ref)
	if err != nil {
		return err
	}
	if err := a.service.DeleteRecord(ctx, kind, current.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Deleted %s %s\n", kind, current.Identifier)
	if current.LinkedID != "" && kind == record.KindRegistryPV {
		fmt.Fprintf(a.out, "  Linked legal PV %s deleted\n", current.LinkedID)
	}
	return nil
}

// Render renders a record on demand and writes it into dir.
func (a *RecordAdapter) Render(ctx context.Context, kind record.Kind, ref, dir string) (string, error) {
	current, err := a.resolve(ctx, kind, ref)
	if err != nil {
		return "", err
	}
	doc, err := a.service.RenderOnDemand(ctx, kind, current.ID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, doc.FileName)
	if err := os.WriteFile(path, doc.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(a.out, "✓ Rendered %s (%s, %d bytes)\n", path, doc.ContentType, len(doc.Data))
	return path, nil
}

// Document prints the path of the persisted document.
func (a *RecordAdapter) Document(ctx context.Context, kind record.Kind, ref string) (string, error) {
	current, err := a.resolve(ctx, kind, ref)
	if err != nil {
		return "", err
	}
	path, err := a.service.DocumentPath(ctx, kind, current.ID)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(a.out, path)
	return path, nil
}

// Retry re-runs missing follow-ups.
func (a *RecordAdapter) Retry(ctx context.Context, kind record.Kind, ref string) (*primary.Record, error) {
	current, err := a.resolve(ctx, kind, ref)
	if err != nil {
		return nil, err
	}
	rec, err := a.service.RetrySideEffects(ctx, kind, current.ID)
	if err != nil {
		return nil, err
	}
	if len(rec.Pending) == 0 {
		fmt.Fprintf(a.out, "✓ %s %s is complete\n", kind, rec.Identifier)
		return rec, nil
	}
	a.printPending(rec)
	return rec, nil
}

// Link links a pending registry PV.
func (a *RecordAdapter) Link(ctx context.Context, ref string) (*primary.Record, error) {
	current, err := a.resolve(ctx, record.KindRegistryPV, ref)
	if err != nil {
		return nil, err
	}
	rec, err := a.service.LinkRegistry(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "✓ Registry %s linked to legal PV %s\n", rec.Identifier, rec.LinkedID)
	return rec, nil
}

// Audit prints the audit trail.
func (a *RecordAdapter) Audit(ctx context.Context, filters primary.AuditFilters) ([]*primary.AuditEntry, error) {
	entries, err := a.service.ListAudit(ctx, filters)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No audit entries found.")
		return entries, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TIME\tKIND\tRECORD\tACTION\tACTOR\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", e.CreatedAt, e.Kind, e.RecordID, e.Action, e.Actor, e.Details)
	}
	w.Flush()
	return entries, nil
}

// Failures prints recorded side-effect failures.
func (a *RecordAdapter) Failures(ctx context.Context, filters primary.SideEffectFailureFilters) ([]*primary.SideEffectFailure, error) {
	failures, err := a.service.ListSideEffectFailures(ctx, filters)
	if err != nil {
		return nil, err
	}
	if len(failures) == 0 {
		fmt.Fprintln(a.out, "No side effect failures.")
		return failures, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TIME\tKIND\tRECORD\tEFFECT\tSTATE\tERROR")
	for _, f := range failures {
		state := color.New(color.FgRed).Sprint("open")
		if f.ResolvedAt != "" {
			state = color.New(color.FgGreen).Sprint("resolved")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", f.CreatedAt, f.Kind, f.RecordID, f.Effect, state, f.Error)
	}
	w.Flush()
	return failures, nil
}

// resolve accepts either a record ID or a human-readable identifier.
func (a *RecordAdapter) resolve(ctx context.Context, kind record.Kind, ref string) (*primary.Record, error) {
	if numbering.IsIdentifier(strings.ToUpper(ref)) {
		return a.service.FindByIdentifier(ctx, kind, ref)
	}
	return a.service.GetRecord(ctx, kind, ref)
}

func (a *RecordAdapter) printPending(rec *primary.Record) {
	if len(rec.Pending) == 0 {
		return
	}
	fmt.Fprintf(a.out, "  %s %s\n",
		color.New(color.FgYellow).Sprint("! Pending:"),
		strings.Join(rec.Pending, ", "))
	fmt.Fprintf(a.out, "  Retry with: gendbuntu record retry %s %s\n", rec.Kind, rec.Identifier)
}
