package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vaddzy/community-api/internal/models"
)

// SiteConfigRepository provides access to the singleton site_config row.
type SiteConfigRepository struct {
	db *sqlx.DB
}

// NewSiteConfigRepository creates a new instance of SiteConfigRepository.
func NewSiteConfigRepository(db *sqlx.DB) *SiteConfigRepository {
	return &SiteConfigRepository{db: db}
}

// Get returns the site configuration. sql.ErrNoRows signals the document has
// not been created yet.
func (r *SiteConfigRepository) Get(ctx context.Context) (*models.SiteConfig, error) {
	const query = `SELECT title, tagline FROM site_config WHERE id = 1 LIMIT 1`
	var cfg models.SiteConfig
	if err := r.db.GetContext(ctx, &cfg, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get site config: %w", err)
	}
	return &cfg, nil
}

// EnsureDefault writes the default document only when no row exists yet, so
// concurrent self-healing reads persist the default exactly once.
func (r *SiteConfigRepository) EnsureDefault(ctx context.Context, cfg models.SiteConfig) error {
	const query = `INSERT INTO site_config (id, title, tagline) VALUES (1, $1, $2) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, cfg.Title, cfg.Tagline); err != nil {
		return fmt.Errorf("ensure default site config: %w", err)
	}
	return nil
}

// Set replaces the whole document.
func (r *SiteConfigRepository) Set(ctx context.Context, cfg models.SiteConfig) error {
	const query = `INSERT INTO site_config (id, title, tagline) VALUES (1, $1, $2) ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, tagline = EXCLUDED.tagline`
	if _, err := r.db.ExecContext(ctx, query, cfg.Title, cfg.Tagline); err != nil {
		return fmt.Errorf("set site config: %w", err)
	}
	return nil
}
