package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/db"
	"github.com/example/gendbuntu/internal/ports/secondary"
)

// tables maps each kind to its table.
var tables = map[record.Kind]string{
	record.KindIntervention:      "interventions",
	record.KindSeriousIncident:   "serious_incidents",
	record.KindOperationalReport: "operational_reports",
	record.KindLegalPV:           "legal_pvs",
	record.KindRegistryPV:        "registry_pvs",
}

// tableFor returns the table and spec of a kind.
func tableFor(kind record.Kind) (string, record.Spec, error) {
	spec, ok := record.Lookup(kind)
	if !ok {
		return "", record.Spec{}, &record.ValidationError{Fields: []string{"kind"}, Reason: fmt.Sprintf("unknown record kind %q", kind)}
	}
	return tables[kind], spec, nil
}

// kindColumns returns the kind-specific columns: every field, then the link column.
func kindColumns(spec record.Spec) []string {
	cols := spec.FieldNames()
	if spec.LinkField != "" {
		cols = append(cols, spec.LinkField)
	}
	return cols
}

const recordCommonCols = "id, identifier, status, created_by, document_path, notification_sent, notified_at, created_at, updated_at"

func recordSelectCols(spec record.Spec) string {
	return recordCommonCols + ", " + strings.Join(kindColumns(spec), ", ")
}

// RecordRepository implements secondary.RecordRepository for every kind.
type RecordRepository struct {
	store
	now func() time.Time
}

// NewRecordRepository creates a new record repository.
func NewRecordRepository(conn *sql.DB, dialect db.Dialect) *RecordRepository {
	return &RecordRepository{
		store: store{db: conn, dialect: dialect},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// scanRecord scans a row selected with recordSelectCols into a RecordRecord.
func scanRecord(scanner interface {
	Scan(dest ...any) error
}, kind record.Kind, spec record.Spec) (*secondary.RecordRecord, error) {
	var (
		createdBy    sql.NullString
		documentPath sql.NullString
		sent         bool
		notifiedAt   sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
	)

	cols := kindColumns(spec)
	values := make([]sql.NullString, len(cols))

	rec := &secondary.RecordRecord{Kind: kind}
	dest := []any{&rec.ID, &rec.Identifier, &rec.Status, &createdBy, &documentPath, &sent, &notifiedAt, &createdAt, &updatedAt}
	for i := range values {
		dest = append(dest, &values[i])
	}
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	rec.CreatedBy = createdBy.String
	rec.DocumentPath = documentPath.String
	rec.NotificationSent = sent
	if notifiedAt.Valid {
		rec.NotifiedAt = notifiedAt.Time.UTC().Format(time.RFC3339)
	}
	rec.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	rec.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)

	rec.Fields = make(record.Fields, len(cols))
	for i, c := range cols {
		if values[i].Valid {
			rec.Fields[c] = values[i].String
		}
	}
	return rec, nil
}

// Create persists a new record.
func (r *RecordRepository) Create(ctx context.Context, rec *secondary.RecordRecord) error {
	table, spec, err := tableFor(rec.Kind)
	if err != nil {
		return err
	}

	status := rec.Status
	if status == "" {
		status = spec.InitialStatus()
	}
	now := r.now()

	cols := []string{"id", "identifier", "status", "created_by", "created_at", "updated_at"}
	args := []any{rec.ID, rec.Identifier, status, nullString(rec.CreatedBy), now, now}
	for _, c := range kindColumns(spec) {
		if v := rec.Fields[c]; v != "" {
			cols = append(cols, c)
			args = append(args, v)
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders(len(cols)))
	if _, err := r.exec(ctx, query, args...); err != nil {
		return classify(err, rec.Kind, "create")
	}

	rec.Status = status
	rec.CreatedAt = now.Format(time.RFC3339)
	rec.UpdatedAt = rec.CreatedAt
	return nil
}

// GetByID retrieves a record by its ID.
func (r *RecordRepository) GetByID(ctx context.Context, kind record.Kind, id string) (*secondary.RecordRecord, error) {
	return r.getBy(ctx, kind, "id", id)
}

// GetByIdentifier retrieves a record by its identifier.
func (r *RecordRepository) GetByIdentifier(ctx context.Context, kind record.Kind, identifier string) (*secondary.RecordRecord, error) {
	return r.getBy(ctx, kind, "identifier", identifier)
}

func (r *RecordRepository) getBy(ctx context.Context, kind record.Kind, column, value string) (*secondary.RecordRecord, error) {
	table, spec, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	row := r.queryRow(ctx,
		"SELECT "+recordSelectCols(spec)+" FROM "+table+" WHERE "+column+" = ?",
		value,
	)

	rec, err := scanRecord(row, kind, spec)
	if err == sql.ErrNoRows {
		return nil, record.NotFoundError(kind, value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", kind, err)
	}
	return rec, nil
}

// List retrieves records matching the given filters, newest first.
func (r *RecordRepository) List(ctx context.Context, kind record.Kind, filters secondary.RecordFilters) ([]*secondary.RecordRecord, error) {
	table, spec, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + recordSelectCols(spec) + " FROM " + table + " WHERE 1=1"
	args := []any{}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}

	if filters.CreatedBy != "" {
		query += " AND created_by = ?"
		args = append(args, filters.CreatedBy)
	}

	if filters.Since != "" {
		since, err := parseFilterTime("since", filters.Since)
		if err != nil {
			return nil, err
		}
		query += " AND created_at >= ?"
		args = append(args, since)
	}

	if filters.Until != "" {
		until, err := parseFilterTime("until", filters.Until)
		if err != nil {
			return nil, err
		}
		query += " AND created_at < ?"
		args = append(args, until)
	}

	if len(filters.Fields) > 0 {
		known := kindColumns(spec)
		names := make([]string, 0, len(filters.Fields))
		for name := range filters.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if !containsString(known, name) {
				return nil, &record.ValidationError{Fields: []string{name}, Reason: fmt.Sprintf("unknown filter field for %s", kind)}
			}
			query += " AND " + name + " = ?"
			args = append(args, filters.Fields[name])
		}
	}

	query += " ORDER BY created_at DESC, identifier DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	defer rows.Close()

	var records []*secondary.RecordRecord
	for rows.Next() {
		rec, err := scanRecord(rows, kind, spec)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", kind, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}

	return records, nil
}

func parseFilterTime(name, value string) (time.Time, error) {
	t, err := record.ParseDate(value)
	if err != nil {
		return time.Time{}, &record.ValidationError{Fields: []string{name}, Reason: err.Error()}
	}
	return t.UTC(), nil
}

// Update applies a partial update. Empty values keep the stored value and
// the link column is never touched; SetLink owns it.
func (r *RecordRepository) Update(ctx context.Context, kind record.Kind, id string, patch record.Fields) error {
	table, spec, err := tableFor(kind)
	if err != nil {
		return err
	}

	query := "UPDATE " + table + " SET updated_at = ?"
	args := []any{r.now()}

	if v := patch[record.FieldStatus]; v != "" {
		query += ", status = ?"
		args = append(args, v)
	}
	for _, c := range spec.FieldNames() {
		if v := patch[c]; v != "" {
			query += ", " + c + " = ?"
			args = append(args, v)
		}
	}

	query += " WHERE id = ?"
	args = append(args, id)

	result, err := r.exec(ctx, query, args...)
	if err != nil {
		return classify(err, kind, "update")
	}
	return requireAffected(result, kind, id)
}

// Delete removes a record.
func (r *RecordRepository) Delete(ctx context.Context, kind record.Kind, id string) error {
	table, _, err := tableFor(kind)
	if err != nil {
		return err
	}

	result, err := r.exec(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return classify(err, kind, "delete")
	}
	return requireAffected(result, kind, id)
}

// SetLink stores the cross-reference of a record when it has none yet.
// Setting the same link again is a no-op.
func (r *RecordRepository) SetLink(ctx context.Context, kind record.Kind, id, linkedID string) error {
	table, spec, err := tableFor(kind)
	if err != nil {
		return err
	}
	if spec.LinkField == "" {
		return fmt.Errorf("%s has no cross-reference", kind)
	}

	col := spec.LinkField
	result, err := r.exec(ctx,
		"UPDATE "+table+" SET "+col+" = ?, updated_at = ? WHERE id = ? AND ("+col+" IS NULL OR "+col+" = ?)",
		linkedID, r.now(), id, linkedID,
	)
	if err != nil {
		return classify(err, kind, "link")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to link %s: %w", kind, err)
	}
	if n > 0 {
		return nil
	}

	// Nothing matched: either the record is missing or it is linked elsewhere.
	if _, err := r.GetByID(ctx, kind, id); err != nil {
		return err
	}
	return &record.ConflictError{Reason: fmt.Sprintf("%s %s is already linked", kind, id)}
}

// SetDocumentPath stores the path of the rendered document.
func (r *RecordRepository) SetDocumentPath(ctx context.Context, kind record.Kind, id, path string) error {
	table, _, err := tableFor(kind)
	if err != nil {
		return err
	}

	result, err := r.exec(ctx,
		"UPDATE "+table+" SET document_path = ?, updated_at = ? WHERE id = ?",
		path, r.now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set %s document path: %w", kind, err)
	}
	return requireAffected(result, kind, id)
}

// MarkNotified records a successful notification.
func (r *RecordRepository) MarkNotified(ctx context.Context, kind record.Kind, id string) error {
	table, _, err := tableFor(kind)
	if err != nil {
		return err
	}

	now := r.now()
	result, err := r.exec(ctx,
		"UPDATE "+table+" SET notification_sent = ?, notified_at = ?, updated_at = ? WHERE id = ?",
		true, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark %s notified: %w", kind, err)
	}
	return requireAffected(result, kind, id)
}

func requireAffected(result sql.Result, kind record.Kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return record.NotFoundError(kind, id)
	}
	return nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Ensure RecordRepository implements the interface
var _ secondary.RecordRepository = (*RecordRepository)(nil)
