package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaddzy/community-api/internal/models"
)

func TestSiteConfigGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSiteConfigRepository(db)

	rows := sqlmock.NewRows([]string{"title", "tagline"}).AddRow("Vaddzy", "tagline")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT title, tagline FROM site_config WHERE id = 1 LIMIT 1")).
		WillReturnRows(rows)

	cfg, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Vaddzy", cfg.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSiteConfigGetMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSiteConfigRepository(db)

	mock.ExpectQuery("SELECT title, tagline FROM site_config").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background())
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestSiteConfigEnsureDefaultIsConditional(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSiteConfigRepository(db)

	// Second writer in the self-healing race hits the conflict clause and
	// affects zero rows; both callers succeed.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO site_config (id, title, tagline) VALUES (1, $1, $2) ON CONFLICT (id) DO NOTHING")).
		WithArgs("Vaddzy", "tagline").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.EnsureDefault(context.Background(), models.SiteConfig{Title: "Vaddzy", Tagline: "tagline"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSiteConfigSetUpserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSiteConfigRepository(db)

	mock.ExpectExec("INSERT INTO site_config").
		WithArgs("New", "fresh").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Set(context.Background(), models.SiteConfig{Title: "New", Tagline: "fresh"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
