package database

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectSeedGrid registers the permission grid, role and grant inserts
// that precede the admin account insert.
func expectSeedGrid(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	for i := 0; i < len(seedEntities)*len(seedActions)*len(seedScopes); i++ {
		mock.ExpectExec("INSERT INTO permissions").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec("INSERT INTO roles").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO roles").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO role_permissions").WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectExec("INSERT INTO role_permissions").WillReturnResult(sqlmock.NewResult(0, 13))
}

func TestSeed(t *testing.T) {
	t.Run("existing admin account commits cleanly", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		expectSeedGrid(mock)
		// DO NOTHING returns no row when the account already exists
		mock.ExpectQuery("INSERT INTO accounts").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectCommit()

		repo := &PgRepository{conn: conn}
		require.NoError(t, repo.Seed("devx", "devx@example.com", "password"))
		assert.NoError(t, mock.ExpectationsWereMet(), "expected commit without role assignment")
	})

	t.Run("account insert failure is surfaced", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		expectSeedGrid(mock)
		mock.ExpectQuery("INSERT INTO accounts").WillReturnError(assert.AnError)
		mock.ExpectRollback()

		repo := &PgRepository{conn: conn}
		err = repo.Seed("devx", "devx@example.com", "password")
		require.Error(t, err)
		assert.ErrorContains(t, err, "seed admin account")
		assert.NoError(t, mock.ExpectationsWereMet(), "expected the transaction to roll back")
	})

	t.Run("fresh admin account gets both roles", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		expectSeedGrid(mock)
		mock.ExpectQuery("INSERT INTO accounts").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectExec("INSERT INTO account_roles").
			WithArgs(1).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		repo := &PgRepository{conn: conn}
		require.NoError(t, repo.Seed("devx", "devx@example.com", "password"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
