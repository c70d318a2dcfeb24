package db

// SchemaSQL is the complete modern SQLite schema for fresh installs.
// This schema reflects the current state after all migrations.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the SQLite schema. All tests use
// this schema via GetSchemaSQL(). If repository code references a column that
// doesn't exist here, tests fail immediately with "no such column".
//
// Kind-specific columns are named after the record field they store, so the
// repository can map record.Fields to columns without a translation table.
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL and PostgresSchemaSQL here
//  3. Run `make test` to verify alignment
const SchemaSQL = `
-- Interventions (INT-YYYY-NNNNNN)
CREATE TABLE IF NOT EXISTS interventions (
	id TEXT PRIMARY KEY,
	identifier TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL CHECK(status IN ('en_cours', 'terminee', 'critique', 'annulee')) DEFAULT 'en_cours',
	created_by TEXT,
	type TEXT NOT NULL,
	description TEXT NOT NULL,
	address TEXT,
	coordinates TEXT,
	priority TEXT NOT NULL CHECK(priority IN ('1', '2', '3', '4', '5')) DEFAULT '3',
	assigned_unit_id TEXT,
	started_at TEXT,
	ended_at TEXT,
	document_path TEXT,
	notification_sent BOOLEAN NOT NULL DEFAULT 0,
	notified_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_interventions_status ON interventions(status);
CREATE INDEX IF NOT EXISTS idx_interventions_created_at ON interventions(created_at);

-- Operational reports (CR-YYYY-NNNNNN)
CREATE TABLE IF NOT EXISTS operational_reports (
	id TEXT PRIMARY KEY,
	identifier TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL CHECK(status IN ('draft', 'validated')) DEFAULT 'draft',
	created_by TEXT,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	type TEXT NOT NULL,
	incident_date TEXT,
	document_path TEXT,
	notification_sent BOOLEAN NOT NULL DEFAULT 0,
	notified_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_operational_reports_created_at ON operational_reports(created_at);

-- Serious incidents (INC-YYYY-NNNNNN)
CREATE TABLE IF NOT EXISTS serious_incidents (
	id TEXT PRIMARY KEY,
	identifier TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL CHECK(status IN ('en_cours', 'resolu', 'clos')) DEFAULT 'en_cours',
	created_by TEXT,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	severity TEXT NOT NULL CHECK(severity IN ('critique', 'grave', 'moyen', 'leger')),
	incident_date TEXT NOT NULL,
	location TEXT,
	intervention_id TEXT,
	report_id TEXT,
	document_path TEXT,
	notification_sent BOOLEAN NOT NULL DEFAULT 0,
	notified_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (intervention_id) REFERENCES interventions(id) ON DELETE SET NULL,
	FOREIGN KEY (report_id) REFERENCES operational_reports(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_serious_incidents_status ON serious_incidents(status);
CREATE INDEX IF NOT EXISTS idx_serious_incidents_created_at ON serious_incidents(created_at);

-- Registry PVs (PV-YYYY-NNNNNN), each paired with at most one legal PV
CREATE TABLE IF NOT EXISTS registry_pvs (
	id TEXT PRIMARY KEY,
	identifier TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL CHECK(status IN ('draft', 'validated')) DEFAULT 'draft',
	created_by TEXT,
	type TEXT NOT NULL,
	description TEXT,
	linked_legal_id TEXT,
	document_path TEXT,
	notification_sent BOOLEAN NOT NULL DEFAULT 0,
	notified_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (linked_legal_id) REFERENCES legal_pvs(id) ON DELETE SET NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_registry_pvs_linked_legal ON registry_pvs(linked_legal_id);

-- Legal PVs (PV-YYYY-NNNNNN or PVE-YYYY-NNNNNN by type)
CREATE TABLE IF NOT EXISTS legal_pvs (
	id TEXT PRIMARY KEY,
	identifier TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL CHECK(status IN ('draft', 'validated')) DEFAULT 'draft',
	created_by TEXT,
	type TEXT NOT NULL CHECK(type IN ('pv', 'pve')),
	title TEXT,
	description TEXT NOT NULL,
	incident_date TEXT,
	location TEXT,
	linked_registry_id TEXT,
	document_path TEXT,
	notification_sent BOOLEAN NOT NULL DEFAULT 0,
	notified_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (linked_registry_id) REFERENCES registry_pvs(id) ON DELETE SET NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_legal_pvs_linked_registry ON legal_pvs(linked_registry_id);

-- Identifier counters, one row per (kind, prefix, year)
CREATE TABLE IF NOT EXISTS record_sequences (
	kind TEXT NOT NULL,
	prefix TEXT NOT NULL,
	year INTEGER NOT NULL,
	last_value INTEGER NOT NULL,
	PRIMARY KEY (kind, prefix, year)
);

-- Audit log (append-only)
CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	record_id TEXT NOT NULL,
	action TEXT NOT NULL CHECK(action IN ('create', 'update', 'delete')),
	actor TEXT,
	details TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audit_log_record ON audit_log(kind, record_id);

CREATE TRIGGER IF NOT EXISTS audit_log_no_update BEFORE UPDATE ON audit_log
BEGIN
	SELECT RAISE(ABORT, 'audit_log is append-only');
END;

CREATE TRIGGER IF NOT EXISTS audit_log_no_delete BEFORE DELETE ON audit_log
BEGIN
	SELECT RAISE(ABORT, 'audit_log is append-only');
END;

-- Follow-up steps that failed after the record was persisted
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
`

// PostgresSchemaSQL is SchemaSQL for Postgres. The circular PV foreign keys
// are added after both tables exist.
const PostgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS interventions (
	id TEXT PRIMARY KEY,
	identifier TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL CHECK(status IN ('en_cours', 'terminee', 'critique', 'annulee')) DEFAULT 'en_cours',
	created_by TEXT,
	type TEXT NOT NULL,
	description TEXT NOT NULL,
	address TEXT,
	coordinates TEXT,
	priority TEXT NOT NULL CHECK(priority IN ('1', '2', '3', '4', '5')) DEFAULT '3',
	assigned_unit_id TEXT,
	started_at TEXT,
	ended_at TEXT,
	document_path TEXT,
	notification_sent BOOLEAN NOT NULL DEFAULT FALSE,
	notified_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS operational_reports (
	id TEXT PRIMARY KEY,
	identifier TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL CHECK(status IN ('draft', 'validated')) DEFAULT 'draft',
	created_by TEXT,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	type TEXT NOT NULL,
	incident_date TEXT,
	document_path TEXT,
	notification_sent BOOLEAN NOT NULL DEFAULT FALSE,
	notified_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS serious_incidents (
	id TEXT PRIMARY KEY,
	identifier TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL CHECK(status IN ('en_cours', 'resolu', 'clos')) DEFAULT 'en_cours',
	created_by TEXT,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	severity TEXT NOT NULL CHECK(severity IN ('critique', 'grave', 'moyen', 'leger')),
	incident_date TEXT NOT NULL,
	location TEXT,
	intervention_id TEXT REFERENCES interventions(id) ON DELETE SET NULL,
	report_id TEXT REFERENCES operational_reports(id) ON DELETE SET NULL,
	document_path TEXT,
	notification_sent BOOLEAN NOT NULL DEFAULT FALSE,
	notified_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS registry_pvs (
	id TEXT PRIMARY KEY,
	identifier TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL CHECK(status IN ('draft', 'validated')) DEFAULT 'draft',
	created_by TEXT,
	type TEXT NOT NULL,
	description TEXT,
	linked_legal_id TEXT,
	document_path TEXT,
	notification_sent BOOLEAN NOT NULL DEFAULT FALSE,
	notified_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS legal_pvs (
	id TEXT PRIMARY KEY,
	identifier TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL CHECK(status IN ('draft', 'validated')) DEFAULT 'draft',
	created_by TEXT,
	type TEXT NOT NULL CHECK(type IN ('pv', 'pve')),
	title TEXT,
	description TEXT NOT NULL,
	incident_date TEXT,
	location TEXT,
	linked_registry_id TEXT REFERENCES registry_pvs(id) ON DELETE SET NULL,
	document_path TEXT,
	notification_sent BOOLEAN NOT NULL DEFAULT FALSE,
	notified_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'registry_pvs_linked_legal_fk') THEN
		ALTER TABLE registry_pvs ADD CONSTRAINT registry_pvs_linked_legal_fk
			FOREIGN KEY (linked_legal_id) REFERENCES legal_pvs(id) ON DELETE SET NULL;
	END IF;
END $$;

CREATE UNIQUE INDEX IF NOT EXISTS idx_registry_pvs_linked_legal ON registry_pvs(linked_legal_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_legal_pvs_linked_registry ON legal_pvs(linked_registry_id);

CREATE TABLE IF NOT EXISTS record_sequences (
	kind TEXT NOT NULL,
	prefix TEXT NOT NULL,
	year INTEGER NOT NULL,
	last_value INTEGER NOT NULL,
	PRIMARY KEY (kind, prefix, year)
);

CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	record_id TEXT NOT NULL,
	action TEXT NOT NULL CHECK(action IN ('create', 'update', 'delete')),
	actor TEXT,
	details TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_audit_log_record ON audit_log(kind, record_id);

CREATE OR REPLACE RULE audit_log_no_update AS ON UPDATE TO audit_log DO INSTEAD NOTHING;
CREATE OR REPLACE RULE audit_log_no_delete AS ON DELETE TO audit_log DO INSTEAD NOTHING;

CREATE TABLE IF NOT EXISTS side_effect_failures (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	record_id TEXT NOT NULL,
	effect TEXT NOT NULL CHECK(effect IN ('link', 'render', 'notify', 'unlink')),
	error TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	resolved_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_side_effect_failures_record ON side_effect_failures(kind, record_id);
`

// GetSchemaSQL returns the authoritative SQLite schema for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}

// SchemaFor returns the schema of a dialect.
func SchemaFor(d Dialect) string {
	if d == DialectPostgres {
		return PostgresSchemaSQL
	}
	return SchemaSQL
}
