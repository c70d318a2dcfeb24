package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/ctxutil"
	"github.com/example/gendbuntu/internal/ports/secondary"
)

// AuditWriterAdapter implements secondary.AuditWriter using AuditRepository.
// Only kinds flagged as audited are written; other kinds are skipped.
type AuditWriterAdapter struct {
	auditRepo *AuditRepository
}

// NewAuditWriterAdapter creates a new AuditWriterAdapter.
func NewAuditWriterAdapter(auditRepo *AuditRepository) *AuditWriterAdapter {
	return &AuditWriterAdapter{auditRepo: auditRepo}
}

// LogCreate logs the creation of a record.
func (w *AuditWriterAdapter) LogCreate(ctx context.Context, kind record.Kind, recordID, identifier string) error {
	return w.writeLog(ctx, kind, recordID, "create", map[string]string{"identifier": identifier})
}

// LogUpdate logs a field change of a record.
func (w *AuditWriterAdapter) LogUpdate(ctx context.Context, kind record.Kind, recordID, fieldName, oldValue, newValue string) error {
	return w.writeLog(ctx, kind, recordID, "update", map[string]string{
		"field": fieldName,
		"old":   oldValue,
		"new":   newValue,
	})
}

// LogDelete logs the deletion of a record.
func (w *AuditWriterAdapter) LogDelete(ctx context.Context, kind record.Kind, recordID, identifier string) error {
	return w.writeLog(ctx, kind, recordID, "delete", map[string]string{"identifier": identifier})
}

// writeLog writes a log entry with common logic.
func (w *AuditWriterAdapter) writeLog(ctx context.Context, kind record.Kind, recordID, action string, details map[string]string) error {
	spec, ok := record.Lookup(kind)
	if !ok || !spec.Audited {
		return nil
	}

	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	return w.auditRepo.Create(ctx, &secondary.AuditEntryRecord{
		ID:       uuid.NewString(),
		Kind:     kind,
		RecordID: recordID,
		Action:   action,
		Actor:    ctxutil.ActorFromContext(ctx),
		Details:  string(payload),
	})
}

// Ensure AuditWriterAdapter implements the interface
var _ secondary.AuditWriter = (*AuditWriterAdapter)(nil)
