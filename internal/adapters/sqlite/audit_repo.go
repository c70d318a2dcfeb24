package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/db"
	"github.com/example/gendbuntu/internal/ports/secondary"
)

// AuditRepository implements secondary.AuditRepository with SQL.
// Rows are only ever inserted; the schema rejects updates and deletes.
type AuditRepository struct {
	store
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(conn *sql.DB, dialect db.Dialect) *AuditRepository {
	return &AuditRepository{store: store{db: conn, dialect: dialect}}
}

// Create appends an audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *secondary.AuditEntryRecord) error {
	now := time.Now().UTC()
	_, err := r.exec(ctx,
		`INSERT INTO audit_log (id, kind, record_id, action, actor, details, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		string(entry.Kind),
		entry.RecordID,
		entry.Action,
		nullString(entry.Actor),
		nullString(entry.Details),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	entry.CreatedAt = now.Format(time.RFC3339)
	return nil
}

// List retrieves audit entries matching the given filters, newest first.
func (r *AuditRepository) List(ctx context.Context, filters secondary.AuditFilters) ([]*secondary.AuditEntryRecord, error) {
	query := `SELECT id, kind, record_id, action, actor, details, created_at FROM audit_log WHERE 1=1`
	args := []any{}

	if filters.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filters.Kind))
	}

	if filters.RecordID != "" {
		query += " AND record_id = ?"
		args = append(args, filters.RecordID)
	}

	if filters.Actor != "" {
		query += " AND actor = ?"
		args = append(args, filters.Actor)
	}

	if filters.Action != "" {
		query += " AND action = ?"
		args = append(args, filters.Action)
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*secondary.AuditEntryRecord
	for rows.Next() {
		var (
			kind      string
			actor     sql.NullString
			details   sql.NullString
			createdAt time.Time
		)

		entry := &secondary.AuditEntryRecord{}
		err := rows.Scan(&entry.ID,
			&kind,
			&entry.RecordID,
			&entry.Action,
			&actor,
			&details,
			&createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Kind = record.Kind(kind)
		entry.Actor = actor.String
		entry.Details = details.String
		entry.CreatedAt = createdAt.UTC().Format(time.RFC3339)

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Ensure AuditRepository implements the interface
var _ secondary.AuditRepository = (*AuditRepository)(nil)
