package secondary

import (
	"context"

	"github.com/example/gendbuntu/internal/core/record"
)

// AuditWriter defines the interface for writing audit log entries.
// Implementations extract the actor from context.
type AuditWriter interface {
	// LogCreate logs the creation of a record.
	LogCreate(ctx context.Context, kind record.Kind, recordID, identifier string) error

	// LogUpdate logs a field change of a record.
	// fieldName, oldValue, newValue describe what changed.
	LogUpdate(ctx context.Context, kind record.Kind, recordID, fieldName, oldValue, newValue string) error

	// LogDelete logs the deletion of a record.
	LogDelete(ctx context.Context, kind record.Kind, recordID, identifier string) error
}

// AuditRepository reads the append-only audit log.
type AuditRepository interface {
	List(ctx context.Context, filters AuditFilters) ([]*AuditEntryRecord, error)
}

// AuditEntryRecord represents an audit row as stored in persistence.
type AuditEntryRecord struct {
	ID        string
	Kind      record.Kind
	RecordID  string
	Action    string // 'create', 'update', 'delete'
	Actor     string
	Details   string // JSON object
	CreatedAt string
}

// AuditFilters contains filter options for querying the audit log.
type AuditFilters struct {
	Kind     record.Kind
	RecordID string
	Actor    string
	Action   string
	Limit    int
}
