package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vaddzy/community-api/internal/models"
)

// MediaRepository provides database access for visitor media items.
type MediaRepository struct {
	db *sqlx.DB
}

// NewMediaRepository creates a new instance of MediaRepository.
func NewMediaRepository(db *sqlx.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// ListByOwner returns one owner's media, newest first.
func (r *MediaRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.MediaItem, error) {
	const query = `SELECT id, owner_id, title, media_kind, media_ref, created_at FROM media_items WHERE owner_id = $1 ORDER BY created_at DESC`
	items := make([]models.MediaItem, 0)
	if err := r.db.SelectContext(ctx, &items, query, ownerID); err != nil {
		return nil, fmt.Errorf("list media by owner: %w", err)
	}
	return items, nil
}

// FindByID returns a media item by identifier.
func (r *MediaRepository) FindByID(ctx context.Context, id string) (*models.MediaItem, error) {
	const query = `SELECT id, owner_id, title, media_kind, media_ref, created_at FROM media_items WHERE id = $1 LIMIT 1`
	var item models.MediaItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find media by id: %w", err)
	}
	return &item, nil
}

// Create inserts a new media item.
func (r *MediaRepository) Create(ctx context.Context, item *models.MediaItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO media_items (id, owner_id, title, media_kind, media_ref, created_at) VALUES (:id, :owner_id, :title, :media_kind, :media_ref, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create media item: %w", err)
	}
	return nil
}

// Delete removes a media item permanently.
func (r *MediaRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM media_items WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete media item: %w", err)
	}
	return nil
}
