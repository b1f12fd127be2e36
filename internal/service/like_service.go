package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vaddzy/community-api/internal/mirror"
	"github.com/vaddzy/community-api/internal/models"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
)

// likeNamespace seeds the deterministic like identifier. Two concurrent
// toggles by the same user on the same post always compute the same id, so
// the unique constraint collapses them into one row instead of two.
var likeNamespace = uuid.MustParse("8f3c1a2e-7d4b-4c6a-9e1f-2b5d8a0c4e6f")

type likeRepository interface {
	FindByPostAndUser(ctx context.Context, postID, userID string) (*models.Like, error)
	Create(ctx context.Context, like *models.Like) error
	Delete(ctx context.Context, id string) error
}

type likePostFinder interface {
	FindByID(ctx context.Context, id string) (*models.Post, error)
}

// LikeService handles the like toggle.
type LikeService struct {
	likes    likeRepository
	posts    likePostFinder
	notifier mirror.Notifier
	logger   *zap.Logger
}

// NewLikeService constructs a LikeService instance.
func NewLikeService(likes likeRepository, posts likePostFinder, notifier mirror.Notifier, logger *zap.Logger) *LikeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LikeService{likes: likes, posts: posts, notifier: notifier, logger: logger}
}

// LikeID derives the deterministic identifier for a (post, user) like.
func LikeID(postID, userID string) string {
	return uuid.NewSHA1(likeNamespace, []byte(postID+"|"+userID)).String()
}

// Toggle flips the user's like on a post and reports the resulting state:
// true when the post is now liked, false when the like was removed.
func (s *LikeService) Toggle(ctx context.Context, userID, postID string) (bool, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}

	existing, err := s.likes.FindByPostAndUser(ctx, postID, userID)
	switch {
	case err == nil:
		if err := s.likes.Delete(ctx, existing.ID); err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to remove like")
		}
		s.publish(ctx)
		return false, nil
	case errors.Is(err, sql.ErrNoRows):
		like := &models.Like{
			ID:     LikeID(postID, userID),
			PostID: postID,
			UserID: userID,
		}
		if err := s.likes.Create(ctx, like); err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to add like")
		}
		s.publish(ctx)
		return true, nil
	default:
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check like state")
	}
}

func (s *LikeService) publish(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, mirror.CollectionLikes); err != nil {
		s.logger.Warn("failed to publish likes change", zap.Error(err))
	}
}
