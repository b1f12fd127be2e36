package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vaddzy/community-api/internal/mirror"
	"github.com/vaddzy/community-api/internal/models"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
)

type announcementRepository interface {
	List(ctx context.Context) ([]models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// AnnouncementService handles admin announcement mutations.
type AnnouncementService struct {
	repo     announcementRepository
	notifier mirror.Notifier
	logger   *zap.Logger
}

// NewAnnouncementService constructs an AnnouncementService instance.
func NewAnnouncementService(repo announcementRepository, notifier mirror.Notifier, logger *zap.Logger) *AnnouncementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{repo: repo, notifier: notifier, logger: logger}
}

// List returns all announcements, newest first.
func (s *AnnouncementService) List(ctx context.Context) ([]models.Announcement, error) {
	announcements, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	return announcements, nil
}

// Add publishes a new announcement. Blank text is rejected before it reaches
// the store.
func (s *AnnouncementService) Add(ctx context.Context, text string) (*models.Announcement, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "announcement text is required")
	}

	announcement := &models.Announcement{
		ID:   uuid.NewString(),
		Text: text,
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to create announcement")
	}

	s.publish(ctx)
	return announcement, nil
}

// Delete removes an announcement by id.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to delete announcement")
	}
	s.publish(ctx)
	return nil
}

func (s *AnnouncementService) publish(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, mirror.CollectionAnnouncements); err != nil {
		s.logger.Warn("failed to publish announcements change", zap.Error(err))
	}
}
