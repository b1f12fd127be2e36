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

// IdentityRepository provides database access for visitor identities.
type IdentityRepository struct {
	db *sqlx.DB
}

// NewIdentityRepository creates a new instance of IdentityRepository.
func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// FindByID returns an identity by identifier.
func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	const query = `SELECT id, username, secret_hash, role, is_banned, avatar_ref, created_at, updated_at FROM identities WHERE id = $1 LIMIT 1`
	var identity models.Identity
	if err := r.db.GetContext(ctx, &identity, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find identity by id: %w", err)
	}
	return &identity, nil
}

// FindByUsername returns an identity by username. The comparison is
// case-insensitive to match the uniqueness index on LOWER(username), so a
// visitor can log in with any casing of the name they registered.
func (r *IdentityRepository) FindByUsername(ctx context.Context, username string) (*models.Identity, error) {
	const query = `SELECT id, username, secret_hash, role, is_banned, avatar_ref, created_at, updated_at FROM identities WHERE LOWER(username) = LOWER($1) LIMIT 1`
	var identity models.Identity
	if err := r.db.GetContext(ctx, &identity, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find identity by username: %w", err)
	}
	return &identity, nil
}

// List returns all identities, newest first.
func (r *IdentityRepository) List(ctx context.Context) ([]models.Identity, error) {
	const query = `SELECT id, username, secret_hash, role, is_banned, avatar_ref, created_at, updated_at FROM identities ORDER BY created_at DESC`
	identities := make([]models.Identity, 0)
	if err := r.db.SelectContext(ctx, &identities, query); err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return identities, nil
}

// Create inserts a new identity. The unique index on username backs the
// registration uniqueness check; callers map violations to USERNAME_TAKEN.
func (r *IdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = now
	}
	identity.UpdatedAt = now

	const query = `INSERT INTO identities (id, username, secret_hash, role, is_banned, avatar_ref, created_at, updated_at) VALUES (:id, :username, :secret_hash, :role, :is_banned, :avatar_ref, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, identity); err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

// UpdateBan flips the ban flag for an identity.
func (r *IdentityRepository) UpdateBan(ctx context.Context, id string, banned bool) error {
	const query = `UPDATE identities SET is_banned = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, banned, time.Now().UTC()); err != nil {
		return fmt.Errorf("update ban flag: %w", err)
	}
	return nil
}

// UpdateAvatar replaces the avatar reference for an identity.
func (r *IdentityRepository) UpdateAvatar(ctx context.Context, id, avatarRef string) error {
	const query = `UPDATE identities SET avatar_ref = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, avatarRef, time.Now().UTC()); err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	return nil
}

// Delete removes an identity permanently. There is no soft delete.
func (r *IdentityRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM identities WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}
