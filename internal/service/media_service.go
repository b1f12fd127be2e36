package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vaddzy/community-api/internal/mirror"
	"github.com/vaddzy/community-api/internal/models"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
)

type mediaRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.MediaItem, error)
	FindByID(ctx context.Context, id string) (*models.MediaItem, error)
	Create(ctx context.Context, item *models.MediaItem) error
	Delete(ctx context.Context, id string) error
}

type urlSigner interface {
	Generate(mediaID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (mediaID, relPath string, expiresAt time.Time, err error)
}

type mediaObjectStore interface {
	mediaStore
	Open(filename string) (*os.File, error)
}

// MediaService handles visitor media uploads and deletions. Every operation
// is scoped to the owner; the stream layer mirrors media per owner the same
// way.
type MediaService struct {
	repo     mediaRepository
	storage  mediaObjectStore
	signer   urlSigner
	notifier mirror.Notifier
	logger   *zap.Logger
}

// NewMediaService constructs a MediaService instance.
func NewMediaService(repo mediaRepository, storage mediaObjectStore, signer urlSigner, notifier mirror.Notifier, logger *zap.Logger) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{repo: repo, storage: storage, signer: signer, notifier: notifier, logger: logger}
}

// Upload stores the file and inserts the media record for the owner.
func (s *MediaService) Upload(ctx context.Context, ownerID, title string, kind models.MediaKind, fileName string, file io.Reader) (*models.MediaItem, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "media title is required")
	}
	if !models.ValidMediaKind(kind) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported media kind")
	}
	if fileName == "" || file == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "media file is required")
	}

	id := uuid.NewString()
	relPath := filepath.Join("media", ownerID, id+filepath.Ext(fileName))
	storedPath, err := s.storage.SaveStream(relPath, file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store media file")
	}

	item := &models.MediaItem{
		ID:        id,
		OwnerID:   ownerID,
		Title:     title,
		MediaKind: kind,
		MediaRef:  storedPath,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		if cleanupErr := s.storage.Delete(storedPath); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned media file", zap.String("path", storedPath), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to create media item")
	}

	s.publish(ctx, ownerID)
	return item, nil
}

// Delete removes one of the caller's media items along with its stored file.
func (s *MediaService) Delete(ctx context.Context, ownerID, id string) error {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "media item not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load media item")
	}
	if item.OwnerID != ownerID {
		return appErrors.Clone(appErrors.ErrForbidden, "not the media owner")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to delete media item")
	}
	if err := s.storage.Delete(item.MediaRef); err != nil {
		s.logger.Warn("failed to remove media file", zap.String("path", item.MediaRef), zap.Error(err))
	}

	s.publish(ctx, ownerID)
	return nil
}

// DownloadURL issues a fresh signed download token for a media item.
func (s *MediaService) DownloadURL(item *models.MediaItem) (string, time.Time, error) {
	token, expiresAt, err := s.signer.Generate(item.ID, item.MediaRef)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return token, expiresAt, nil
}

// SignRef signs an arbitrary stored media reference. Post media takes this
// path since posts live outside the media_items table.
func (s *MediaService) SignRef(refID, relPath string) (string, time.Time, error) {
	token, expiresAt, err := s.signer.Generate(refID, relPath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return token, expiresAt, nil
}

// Download validates a signed token and opens the referenced file. The token
// carries the path, so no database round trip is needed on the hot path.
func (s *MediaService) Download(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "media file not found")
	}
	return file, filepath.Base(relPath), nil
}

func (s *MediaService) publish(ctx context.Context, ownerID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, mirror.MediaCollection(ownerID)); err != nil {
		s.logger.Warn("failed to publish media change", zap.String("owner_id", ownerID), zap.Error(err))
	}
}
