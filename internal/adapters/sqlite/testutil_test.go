// Package sqlite_test contains integration tests for the SQL repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Instead, use
// setupTestDB() and the seed* helpers.
package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/gendbuntu/internal/adapters/sqlite"
	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/db"
	"github.com/example/gendbuntu/internal/ports/secondary"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// A single connection keeps every statement on the same in-memory database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	// Use the authoritative schema from schema.go
	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

func newRecordRepo(testDB *sql.DB) *sqlite.RecordRepository {
	return sqlite.NewRecordRepository(testDB, db.DialectSQLite)
}

// seedRecord inserts a record through the repository and returns it.
func seedRecord(t *testing.T, repo *sqlite.RecordRepository, kind record.Kind, id, identifier string, fields record.Fields) *secondary.RecordRecord {
	t.Helper()
	rec := &secondary.RecordRecord{
		ID:         id,
		Kind:       kind,
		Identifier: identifier,
		CreatedBy:  "agent-1",
		Fields:     fields,
	}
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("failed to seed %s %s: %v", kind, identifier, err)
	}
	return rec
}

func seedIntervention(t *testing.T, repo *sqlite.RecordRepository, id, identifier string) *secondary.RecordRecord {
	t.Helper()
	return seedRecord(t, repo, record.KindIntervention, id, identifier, record.Fields{
		"type":        "accident",
		"description": "Collision RN7",
		"priority":    "3",
	})
}

func seedRegistry(t *testing.T, repo *sqlite.RecordRepository, id, identifier string) *secondary.RecordRecord {
	t.Helper()
	return seedRecord(t, repo, record.KindRegistryPV, id, identifier, record.Fields{
		"type":        "audition",
		"description": "Audition témoin",
	})
}

func seedLegal(t *testing.T, repo *sqlite.RecordRepository, id, identifier, registryID string) *secondary.RecordRecord {
	t.Helper()
	fields := record.Fields{"type": "pv", "description": "PV de constatation"}
	if registryID != "" {
		fields["linked_registry_id"] = registryID
	}
	return seedRecord(t, repo, record.KindLegalPV, id, identifier, fields)
}
