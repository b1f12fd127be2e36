package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vaddzy/community-api/internal/mirror"
	"github.com/vaddzy/community-api/internal/models"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
)

type identityRepository interface {
	FindByID(ctx context.Context, id string) (*models.Identity, error)
	List(ctx context.Context) ([]models.Identity, error)
	UpdateBan(ctx context.Context, id string, banned bool) error
	UpdateAvatar(ctx context.Context, id, avatarRef string) error
	Delete(ctx context.Context, id string) error
}

// IdentityService covers the admin roster operations and visitor profile
// updates. The admin identity itself is config-backed and never appears here.
type IdentityService struct {
	repo     identityRepository
	storage  mediaStore
	notifier mirror.Notifier
	logger   *zap.Logger
}

// NewIdentityService constructs an IdentityService instance.
func NewIdentityService(repo identityRepository, storage mediaStore, notifier mirror.Notifier, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{repo: repo, storage: storage, notifier: notifier, logger: logger}
}

// List returns the registered visitor roster without secret material.
func (s *IdentityService) List(ctx context.Context) ([]models.IdentityInfo, error) {
	identities, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list identities")
	}
	infos := make([]models.IdentityInfo, 0, len(identities))
	for _, identity := range identities {
		infos = append(infos, identity.Info())
	}
	return infos, nil
}

// ToggleBan flips the ban flag and reports the new state. A banned visitor's
// existing token keeps working until expiry, but login is refused and the
// users mirror broadcasts the flag immediately.
func (s *IdentityService) ToggleBan(ctx context.Context, id string) (bool, error) {
	identity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "identity not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load identity")
	}

	banned := !identity.IsBanned
	if err := s.repo.UpdateBan(ctx, id, banned); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to update ban flag")
	}

	s.logger.Info("ban flag toggled", zap.String("identity_id", id), zap.Bool("banned", banned))
	s.publish(ctx)
	return banned, nil
}

// Delete removes a visitor identity. The visitor's media, comments, and likes
// stay in place; only the identity record is removed.
func (s *IdentityService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "identity not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load identity")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to delete identity")
	}

	s.logger.Info("identity deleted", zap.String("identity_id", id))
	s.publish(ctx)
	return nil
}

// UpdateAvatar stores an uploaded avatar image and points the identity at it.
func (s *IdentityService) UpdateAvatar(ctx context.Context, identityID, fileName string, file io.Reader) (string, error) {
	if fileName == "" || file == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "avatar file is required")
	}

	relPath := filepath.Join("avatars", identityID, uuid.NewString()+filepath.Ext(fileName))
	storedPath, err := s.storage.SaveStream(relPath, file)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store avatar")
	}

	if err := s.repo.UpdateAvatar(ctx, identityID, storedPath); err != nil {
		if cleanupErr := s.storage.Delete(storedPath); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned avatar", zap.String("path", storedPath), zap.Error(cleanupErr))
		}
		return "", appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to update avatar")
	}

	s.publish(ctx)
	return storedPath, nil
}

func (s *IdentityService) publish(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, mirror.CollectionUsers); err != nil {
		s.logger.Warn("failed to publish users change", zap.Error(err))
	}
}
