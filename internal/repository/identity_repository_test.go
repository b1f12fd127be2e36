package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaddzy/community-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func identityRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "secret_hash", "role", "is_banned", "avatar_ref", "created_at", "updated_at"}).
		AddRow("v1", "nova", "hash", string(models.RoleVisitor), false, "", now, now)
}

func TestIdentityFindByUsername(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, secret_hash, role, is_banned, avatar_ref, created_at, updated_at FROM identities WHERE LOWER(username) = LOWER($1) LIMIT 1")).
		WithArgs("nova").
		WillReturnRows(identityRows(time.Now()))

	identity, err := repo.FindByUsername(context.Background(), "nova")
	require.NoError(t, err)
	assert.Equal(t, "v1", identity.ID)
	assert.Equal(t, models.RoleVisitor, identity.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityFindByUsernameIgnoresCase(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	// The lookup folds both sides, matching the uniqueness index on
	// LOWER(username): "NoVa" resolves the identity registered as "nova".
	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(username) = LOWER($1)")).
		WithArgs("NoVa").
		WillReturnRows(identityRows(time.Now()))

	identity, err := repo.FindByUsername(context.Background(), "NoVa")
	require.NoError(t, err)
	assert.Equal(t, "nova", identity.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityFindByUsernameMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	mock.ExpectQuery("SELECT id, username").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUsername(context.Background(), "ghost")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestIdentityCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	mock.ExpectExec("INSERT INTO identities").WillReturnResult(sqlmock.NewResult(1, 1))

	identity := &models.Identity{Username: "nova", SecretHash: "hash", Role: models.RoleVisitor}
	require.NoError(t, repo.Create(context.Background(), identity))
	assert.NotEmpty(t, identity.ID)
	assert.False(t, identity.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityUpdateBan(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE identities SET is_banned = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("v1", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateBan(context.Background(), "v1", true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM identities WHERE id = $1")).
		WithArgs("v1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "v1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
