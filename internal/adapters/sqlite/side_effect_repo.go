package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/db"
	"github.com/example/gendbuntu/internal/ports/secondary"
)

// SideEffectRepository implements secondary.SideEffectLog with SQL.
type SideEffectRepository struct {
	store
}

// NewSideEffectRepository creates a new side-effect failure repository.
func NewSideEffectRepository(conn *sql.DB, dialect db.Dialect) *SideEffectRepository {
	return &SideEffectRepository{store: store{db: conn, dialect: dialect}}
}

// Record appends a failure. An empty ID is generated.
func (r *SideEffectRepository) Record(ctx context.Context, failure *secondary.SideEffectFailureRecord) error {
	if failure.ID == "" {
		failure.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	_, err := r.exec(ctx,
		`INSERT INTO side_effect_failures (id, kind, record_id, effect, error, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		failure.ID, string(failure.Kind), failure.RecordID, failure.Effect, failure.Error, now,
	)
	if err != nil {
		return fmt.Errorf("failed to record side-effect failure: %w", err)
	}
	failure.CreatedAt = now.Format(time.RFC3339)
	return nil
}

// Resolve marks the open failures of an effect as resolved.
func (r *SideEffectRepository) Resolve(ctx context.Context, kind record.Kind, recordID, effect string) error {
	_, err := r.exec(ctx,
		`UPDATE side_effect_failures SET resolved_at = ? WHERE kind = ? AND record_id = ? AND effect = ? AND resolved_at IS NULL`,
		time.Now().UTC(), string(kind), recordID, effect,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve side-effect failures: %w", err)
	}
	return nil
}

// List retrieves failures matching the given filters, newest first.
func (r *SideEffectRepository) List(ctx context.Context, filters secondary.SideEffectFilters) ([]*secondary.SideEffectFailureRecord, error) {
	query := `SELECT id, kind, record_id, effect, error, created_at, resolved_at FROM side_effect_failures WHERE 1=1`
	args := []any{}

	if filters.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filters.Kind))
	}

	if filters.RecordID != "" {
		query += " AND record_id = ?"
		args = append(args, filters.RecordID)
	}

	if filters.Effect != "" {
		query += " AND effect = ?"
		args = append(args, filters.Effect)
	}

	if filters.Unresolved {
		query += " AND resolved_at IS NULL"
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list side-effect failures: %w", err)
	}
	defer rows.Close()

	var failures []*secondary.SideEffectFailureRecord
	for rows.Next() {
		var (
			kind       string
			createdAt  time.Time
			resolvedAt sql.NullTime
		)
		f := &secondary.SideEffectFailureRecord{}
		if err := rows.Scan(&f.ID, &kind, &f.RecordID, &f.Effect, &f.Error, &createdAt, &resolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan side-effect failure: %w", err)
		}
		f.Kind = record.Kind(kind)
		f.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		if resolvedAt.Valid {
			f.ResolvedAt = resolvedAt.Time.UTC().Format(time.RFC3339)
		}
		failures = append(failures, f)
	}

	return failures, rows.Err()
}

// Ensure SideEffectRepository implements the interface
var _ secondary.SideEffectLog = (*SideEffectRepository)(nil)
