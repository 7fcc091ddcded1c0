package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var userCols = []string{
	"id", "username", "password_hash", "email", "first_name", "last_name",
	"is_active", "last_login", "created_at", "updated_at",
	"profile_id", "role", "phone", "stripe_customer_id",
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
