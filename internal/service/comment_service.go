package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vaddzy/community-api/internal/mirror"
	"github.com/vaddzy/community-api/internal/models"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
)

type commentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id string) error
}

type commentPostFinder interface {
	FindByID(ctx context.Context, id string) (*models.Post, error)
}

// CommentService handles comment mutations for visitors and the admin.
type CommentService struct {
	comments commentRepository
	posts    commentPostFinder
	notifier mirror.Notifier
	logger   *zap.Logger
}

// NewCommentService constructs a CommentService instance.
func NewCommentService(comments commentRepository, posts commentPostFinder, notifier mirror.Notifier, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{comments: comments, posts: posts, notifier: notifier, logger: logger}
}

// Add attaches a comment to a post. The author's username is denormalised
// onto the record at write time so the feed never needs a join.
func (s *CommentService) Add(ctx context.Context, claims *models.JWTClaims, postID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment text is required")
	}

	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}

	comment := &models.Comment{
		ID:             uuid.NewString(),
		PostID:         postID,
		AuthorID:       claims.IdentityID,
		AuthorUsername: claims.Username,
		Text:           text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to create comment")
	}

	s.publish(ctx)
	return comment, nil
}

// Delete removes a comment. Authors may delete their own comments; the admin
// may delete any.
func (s *CommentService) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	comment, err := s.comments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment")
	}

	if claims.Role != models.RoleAdmin && comment.AuthorID != claims.IdentityID {
		return appErrors.Clone(appErrors.ErrForbidden, "not the comment author")
	}

	if err := s.comments.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to delete comment")
	}

	s.publish(ctx)
	return nil
}

func (s *CommentService) publish(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, mirror.CollectionComments); err != nil {
		s.logger.Warn("failed to publish comments change", zap.Error(err))
	}
}
