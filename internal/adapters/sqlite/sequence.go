package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/gendbuntu/internal/core/numbering"
	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/db"
	"github.com/example/gendbuntu/internal/ports/secondary"
)

// Numbering strategies.
const (
	StrategyCounter = "counter"
	StrategyCount   = "count"
)

// NewSequenceAllocator returns the allocator of a numbering strategy.
func NewSequenceAllocator(strategy string, conn *sql.DB, dialect db.Dialect) (secondary.SequenceAllocator, error) {
	s := store{db: conn, dialect: dialect}
	switch strategy {
	case "", StrategyCounter:
		return &CounterAllocator{store: s}, nil
	case StrategyCount:
		return &CountAllocator{store: s}, nil
	}
	return nil, fmt.Errorf("unknown numbering strategy %q", strategy)
}

// CounterAllocator increments a per-(kind, prefix, year) row of record_sequences.
// Called inside the insert transaction, the counter and the record commit or
// roll back together, so numbers are never reissued after a deletion.
type CounterAllocator struct {
	store
}

const counterUpsert = `INSERT INTO record_sequences (kind, prefix, year, last_value) VALUES (?, ?, ?, 1)
ON CONFLICT (kind, prefix, year) DO UPDATE SET last_value = record_sequences.last_value + 1
RETURNING last_value`

// Allocate reserves and returns the next identifier.
func (a *CounterAllocator) Allocate(ctx context.Context, kind record.Kind, prefix string, year int) (string, error) {
	var next int
	if err := a.queryRow(ctx, counterUpsert, string(kind), prefix, year).Scan(&next); err != nil {
		return "", fmt.Errorf("failed to allocate %s identifier: %w", kind, err)
	}
	return numbering.Format(prefix, year, next), nil
}

// CountAllocator numbers records by counting the existing identifiers of the year.
// It reserves nothing: concurrent callers may receive the same identifier and a
// deletion frees a number that is handed out again, colliding with live records
// above it. Kept for databases that must reproduce the first-release numbering.
type CountAllocator struct {
	store
}

// Allocate returns count+1 for the (prefix, year) pattern.
func (a *CountAllocator) Allocate(ctx context.Context, kind record.Kind, prefix string, year int) (string, error) {
	table, _, err := tableFor(kind)
	if err != nil {
		return "", err
	}

	var count int
	err = a.queryRow(ctx,
		"SELECT COUNT(*) FROM "+table+" WHERE identifier LIKE ?",
		numbering.YearPattern(prefix, year),
	).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("failed to count %s identifiers: %w", kind, err)
	}
	return numbering.NextFromCount(prefix, year, count), nil
}

// Ensure allocators implement the interface
var (
	_ secondary.SequenceAllocator = (*CounterAllocator)(nil)
	_ secondary.SequenceAllocator = (*CountAllocator)(nil)
)
