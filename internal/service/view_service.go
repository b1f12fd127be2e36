package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/vaddzy/community-api/internal/models"
	"github.com/vaddzy/community-api/internal/view"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
)

type feedPostRepository interface {
	List(ctx context.Context) ([]models.Post, error)
}

type feedLikeRepository interface {
	List(ctx context.Context) ([]models.Like, error)
}

type feedCommentRepository interface {
	List(ctx context.Context) ([]models.Comment, error)
}

// FeedItem is one feed entry plus a fresh signed download token for its
// media file.
type FeedItem struct {
	view.PostView
	DownloadToken string `json:"download_token,omitempty"`
}

// ViewService assembles read-only projections over the collection data. It
// holds no state of its own; every call recomputes from current records.
type ViewService struct {
	posts    feedPostRepository
	likes    feedLikeRepository
	comments feedCommentRepository
	media    *MediaService
	logger   *zap.Logger
}

// NewViewService constructs a ViewService instance.
func NewViewService(posts feedPostRepository, likes feedLikeRepository, comments feedCommentRepository, media *MediaService, logger *zap.Logger) *ViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewService{posts: posts, likes: likes, comments: comments, media: media, logger: logger}
}

// Feed builds the post feed for an identity. An empty identityID yields the
// anonymous view: like counts without per-user like state.
func (s *ViewService) Feed(ctx context.Context, identityID string) ([]FeedItem, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts")
	}
	likes, err := s.likes.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list likes")
	}
	comments, err := s.comments.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}

	views := view.BuildFeed(posts, likes, comments, identityID)
	items := make([]FeedItem, 0, len(views))
	for _, v := range views {
		item := FeedItem{PostView: v}
		if s.media != nil && v.Post.MediaRef != "" {
			token, _, err := s.media.SignRef(v.Post.ID, v.Post.MediaRef)
			if err != nil {
				s.logger.Warn("failed to sign post media", zap.String("post_id", v.Post.ID), zap.Error(err))
			} else {
				item.DownloadToken = token
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// Sections returns the app states visible for a role.
func (s *ViewService) Sections(role models.IdentityRole) []view.AppState {
	return view.VisibleSections(role)
}
