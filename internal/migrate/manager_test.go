package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/001_auth.up.sql":   {Data: []byte("create table officers (id bigserial primary key);")},
		"migrations/001_auth.down.sql": {Data: []byte("drop table officers;")},
		"migrations/002_cases.up.sql":  {Data: []byte("create table cases (id bigserial primary key);")},
		"seeds/001_rbac.sql":           {Data: []byte("insert into roles (code, name) values ('admin', '管理员');")},
	}
}

func expectEnsureTables(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`create table if not exists schema_migrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`create table if not exists schema_seeds`).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestUpAppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectEnsureTables(mock)
	mock.ExpectQuery(`select name from schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("migrations/001_auth.up.sql"))

	// only 002 is pending
	mock.ExpectBegin()
	mock.ExpectExec(`create table cases`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec(`insert into schema_migrations`).
		WithArgs("migrations/002_cases.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	m := NewManager(db, testFS(), zap.NewNop())
	require.NoError(t, m.Up(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDownRollsBackLastApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectEnsureTables(mock)
	mock.ExpectQuery(`select name from schema_migrations order by applied_at`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("migrations/001_auth.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec(`drop table officers`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec(`delete from schema_migrations`).
		WithArgs("migrations/001_auth.up.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))

	m := NewManager(db, testFS(), zap.NewNop())
	require.NoError(t, m.Down(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDownWithoutHistoryFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectEnsureTables(mock)
	mock.ExpectQuery(`select name from schema_migrations order by applied_at`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	m := NewManager(db, testFS(), zap.NewNop())
	require.Error(t, m.Down(context.Background()))
}

func TestSeedIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectEnsureTables(mock)
	mock.ExpectQuery(`select name from schema_seeds`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("seeds/001_rbac.sql"))

	m := NewManager(db, testFS(), zap.NewNop())
	require.NoError(t, m.Seed(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSplitStatementsRespectsStringLiterals(t *testing.T) {
	stmts := splitStatements("insert into t values ('a;b'); delete from t;")
	require.Len(t, stmts, 2)
	require.Contains(t, stmts[0], "'a;b'")
}
