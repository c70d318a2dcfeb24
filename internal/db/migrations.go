package db

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error

	// PostgresUp upgrades a Postgres database. Nil when PostgresSchemaSQL
	// already carried the change at the version's release.
	PostgresUp func(*sql.Tx) error
}

// migrations is the list of all SQLite migrations in order.
// Version 1 is the record and audit tables of the first release; databases
// from that release have no schema_version table.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_record_and_audit_tables",
		Up:      nil,
	},
	{
		Version: 2,
		Name:    "add_record_sequences",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "add_side_effect_failures",
		Up:      migrationV3,
	},
	{
		Version: 4,
		Name:    "make_audit_log_append_only",
		Up:      migrationV4,
	},
}

// LatestVersion is the schema version of SchemaSQL.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

const createSchemaVersionSQL = `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)
`

// InitSchema creates or upgrades the database schema.
func InitSchema(conn *sql.DB, d Dialect) error {
	if d == DialectPostgres {
		return initPostgresSchema(conn)
	}

	var tableCount int
	err := conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}
	if tableCount > 0 {
		return RunMigrations(conn)
	}

	var recordTables int
	err = conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('interventions', 'registry_pvs', 'legal_pvs')").Scan(&recordTables)
	if err != nil {
		return err
	}

	if _, err := conn.Exec(createSchemaVersionSQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	if recordTables > 0 {
		// First-release database: tables exist at version 1, upgrade from there.
		if _, err := conn.Exec("INSERT INTO schema_version (version) VALUES (1)"); err != nil {
			return err
		}
		return RunMigrations(conn)
	}

	// Completely fresh install - create modern schema directly and mark
	// every migration as applied.
	if _, err := conn.Exec(SchemaSQL); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := conn.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return err
		}
	}
	return nil
}

// RunMigrations executes all pending migrations
func RunMigrations(conn *sql.DB) error {
	if _, err := conn.Exec(createSchemaVersionSQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err := conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("running migration", "version", migration.Version, "name", migration.Name)

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if migration.Up != nil {
			if err := migration.Up(tx); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		slog.Info("migration completed", "version", migration.Version)
	}

	return nil
}

const createPostgresSchemaVersionSQL = `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// initPostgresSchema tracks versions in schema_version like SQLite does.
// A database without recorded versions gets the idempotent modern schema,
// which also covers installs made before versions were tracked.
func initPostgresSchema(conn *sql.DB) error {
	if _, err := conn.Exec(createPostgresSchemaVersionSQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err := conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	if currentVersion == 0 {
		if _, err := conn.Exec(PostgresSchemaSQL); err != nil {
			return fmt.Errorf("failed to apply postgres schema: %w", err)
		}
		for _, m := range migrations {
			if _, err := conn.Exec("INSERT INTO schema_version (version) VALUES ($1) ON CONFLICT (version) DO NOTHING", m.Version); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
			}
		}
		return nil
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("running migration", "version", migration.Version, "name", migration.Name, "dialect", DialectPostgres)

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}
		if migration.PostgresUp != nil {
			if err := migration.PostgresUp(tx); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES ($1)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}
	return nil
}

// migrationV2 adds the identifier counters and seeds them from the highest
// sequence already used, so switching from row counting never reissues a number.
func migrationV2(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS record_sequences (
			kind TEXT NOT NULL,
			prefix TEXT NOT NULL,
			year INTEGER NOT NULL,
			last_value INTEGER NOT NULL,
			PRIMARY KEY (kind, prefix, year)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create record_sequences: %w", err)
	}

	tables := map[string]string{
		"intervention":       "interventions",
		"serious_incident":   "serious_incidents",
		"operational_report": "operational_reports",
		"legal_pv":           "legal_pvs",
		"registry_pv":        "registry_pvs",
	}
	for kind, table := range tables {
		// identifier is PREFIX-YYYY-NNNNNN; split on the first dash.
		_, err := tx.Exec(`
			INSERT INTO record_sequences (kind, prefix, year, last_value)
			SELECT ?, prefix, year, MAX(seq) FROM (
				SELECT
					substr(identifier, 1, instr(identifier, '-') - 1) AS prefix,
					CAST(substr(identifier, instr(identifier, '-') + 1, 4) AS INTEGER) AS year,
					CAST(substr(identifier, instr(identifier, '-') + 6) AS INTEGER) AS seq
				FROM `+table+`
			)
			GROUP BY prefix, year
		`, kind)
		if err != nil {
			return fmt.Errorf("failed to seed sequences from %s: %w", table, err)
		}
	}
	return nil
}

// migrationV3 adds the queryable side-effect failure log.
func migrationV3(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS side_effect_failures (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			record_id TEXT NOT NULL,
			effect TEXT NOT NULL CHECK(effect IN ('link', 'render', 'notify', 'unlink')),
			error TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			resolved_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_side_effect_failures_record ON side_effect_failures(kind, record_id);
	`)
	return err
}

// migrationV4 adds the triggers that reject audit_log rewrites.
func migrationV4(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TRIGGER IF NOT EXISTS audit_log_no_update BEFORE UPDATE ON audit_log
		BEGIN
			SELECT RAISE(ABORT, 'audit_log is append-only');
		END;
		CREATE TRIGGER IF NOT EXISTS audit_log_no_delete BEFORE DELETE ON audit_log
		BEGIN
			SELECT RAISE(ABORT, 'audit_log is append-only');
		END;
	`)
	return err
}
