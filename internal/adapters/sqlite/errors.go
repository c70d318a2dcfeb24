package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/example/gendbuntu/internal/core/record"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY violation.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == pqUniqueViolation
	}
	return false
}

// isForeignKeyViolation reports whether err is a FOREIGN KEY violation.
func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == pqForeignKeyViolation
	}
	return false
}

// violatesIdentifier reports whether a unique violation is on the identifier column.
// SQLite names the column ("interventions.identifier"), Postgres the constraint
// ("interventions_identifier_key").
func violatesIdentifier(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) {
		return strings.Contains(pe.Constraint, "identifier_key")
	}
	return strings.Contains(err.Error(), ".identifier")
}

// classify maps driver constraint errors to record errors.
// Identifier collisions are retryable: a fresh allocation may succeed.
func classify(err error, kind record.Kind, action string) error {
	switch {
	case isUniqueViolation(err):
		if violatesIdentifier(err) {
			return &record.ConflictError{Reason: fmt.Sprintf("duplicate %s identifier", kind), Retryable: true}
		}
		return &record.ConflictError{Reason: fmt.Sprintf("%s cross-reference already in use", kind)}
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: referenced record of %s does not exist", record.ErrNotFound, kind)
	}
	return fmt.Errorf("failed to %s %s: %w", action, kind, err)
}
