package db

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectVersionSQL = "SELECT COALESCE(MAX(version), 0) FROM schema_version"

func expectVersionTable(mock sqlmock.Sqlmock, current int) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_version").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectVersionSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(current))
}

func TestInitSchema_PostgresFreshRecordsVersions(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	expectVersionTable(mock, 0)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS interventions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	for _, m := range migrations {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_version (version) VALUES ($1) ON CONFLICT (version) DO NOTHING")).
			WithArgs(m.Version).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	require.NoError(t, InitSchema(conn, DialectPostgres))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitSchema_PostgresUpToDate(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	expectVersionTable(mock, LatestVersion())

	require.NoError(t, InitSchema(conn, DialectPostgres))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitSchema_PostgresUpgradesFromRecordedVersion(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	expectVersionTable(mock, LatestVersion()-1)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_version (version) VALUES ($1)")).
		WithArgs(LatestVersion()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, InitSchema(conn, DialectPostgres))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitSchema_PostgresVersionReadFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_version").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectVersionSQL)).
		WillReturnError(errors.New("permission denied"))

	assert.Error(t, InitSchema(conn, DialectPostgres))
	assert.NoError(t, mock.ExpectationsWereMet())
}
