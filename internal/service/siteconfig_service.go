package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/vaddzy/community-api/internal/mirror"
	"github.com/vaddzy/community-api/internal/models"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
)

type siteConfigRepository interface {
	Get(ctx context.Context) (*models.SiteConfig, error)
	EnsureDefault(ctx context.Context, cfg models.SiteConfig) error
	Set(ctx context.Context, cfg models.SiteConfig) error
}

// SiteConfigService owns the singleton site configuration document. Reads are
// self-healing: a missing document is replaced with the default and the
// default is what gets returned.
type SiteConfigService struct {
	repo     siteConfigRepository
	notifier mirror.Notifier
	logger   *zap.Logger
	defaults models.SiteConfig
}

// NewSiteConfigService constructs a SiteConfigService instance.
func NewSiteConfigService(repo siteConfigRepository, notifier mirror.Notifier, logger *zap.Logger, defaults models.SiteConfig) *SiteConfigService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SiteConfigService{repo: repo, notifier: notifier, logger: logger, defaults: defaults}
}

// Get returns the site configuration, writing the default document first when
// none exists. Concurrent healing reads race on the insert; the conditional
// write underneath makes exactly one of them stick.
func (s *SiteConfigService) Get(ctx context.Context) (*models.SiteConfig, error) {
	cfg, err := s.repo.Get(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load site config")
	}

	if err := s.repo.EnsureDefault(ctx, s.defaults); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to persist default site config")
	}
	s.logger.Info("site config healed with defaults", zap.String("title", s.defaults.Title))

	cfg, err = s.repo.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload site config")
	}
	return cfg, nil
}

// Update replaces the whole document.
func (s *SiteConfigService) Update(ctx context.Context, cfg models.SiteConfig) (*models.SiteConfig, error) {
	cfg.Title = strings.TrimSpace(cfg.Title)
	cfg.Tagline = strings.TrimSpace(cfg.Tagline)
	if cfg.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "site title is required")
	}

	if err := s.repo.Set(ctx, cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to update site config")
	}

	s.publish(ctx)
	return &cfg, nil
}

func (s *SiteConfigService) publish(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, mirror.CollectionSiteConfig); err != nil {
		s.logger.Warn("failed to publish site config change", zap.Error(err))
	}
}
