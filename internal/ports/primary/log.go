package primary

import "github.com/example/gendbuntu/internal/core/record"

// AuditEntry represents an audit log entry at the port boundary.
type AuditEntry struct {
	ID        string
	Kind      record.Kind
	RecordID  string
	Action    string // 'create', 'update', 'delete'
	Actor     string
	Details   string
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
