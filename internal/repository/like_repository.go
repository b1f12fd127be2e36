package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vaddzy/community-api/internal/models"
)

// LikeRepository provides database access for likes.
type LikeRepository struct {
	db *sqlx.DB
}

// NewLikeRepository creates a new instance of LikeRepository.
func NewLikeRepository(db *sqlx.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// List returns all likes.
func (r *LikeRepository) List(ctx context.Context) ([]models.Like, error) {
	const query = `SELECT id, post_id, user_id FROM likes`
	likes := make([]models.Like, 0)
	if err := r.db.SelectContext(ctx, &likes, query); err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	return likes, nil
}

// ListByPost returns the likes referencing one post.
func (r *LikeRepository) ListByPost(ctx context.Context, postID string) ([]models.Like, error) {
	const query = `SELECT id, post_id, user_id FROM likes WHERE post_id = $1`
	likes := make([]models.Like, 0)
	if err := r.db.SelectContext(ctx, &likes, query, postID); err != nil {
		return nil, fmt.Errorf("list likes by post: %w", err)
	}
	return likes, nil
}

// FindByPostAndUser returns the like for a (post, user) pair if present.
func (r *LikeRepository) FindByPostAndUser(ctx context.Context, postID, userID string) (*models.Like, error) {
	const query = `SELECT id, post_id, user_id FROM likes WHERE post_id = $1 AND user_id = $2 LIMIT 1`
	var like models.Like
	if err := r.db.GetContext(ctx, &like, query, postID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find like: %w", err)
	}
	return &like, nil
}

// Create inserts a like. The deterministic id plus the unique (post_id,
// user_id) constraint make concurrent duplicate inserts collapse into one row.
func (r *LikeRepository) Create(ctx context.Context, like *models.Like) error {
	const query = `INSERT INTO likes (id, post_id, user_id) VALUES (:id, :post_id, :user_id) ON CONFLICT (post_id, user_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, like); err != nil {
		return fmt.Errorf("create like: %w", err)
	}
	return nil
}

// Delete removes a like permanently.
func (r *LikeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM likes WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return nil
}
