package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vaddzy/community-api/internal/mirror"
	"github.com/vaddzy/community-api/internal/models"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
	"github.com/vaddzy/community-api/pkg/jobs"
)

// JobTypePostCascade identifies the background cascade cleaning up the
// engagement records of a deleted post.
const JobTypePostCascade = "post.cascade_delete"

type postRepository interface {
	List(ctx context.Context) ([]models.Post, error)
	FindByID(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
}

type cascadeCommentRepository interface {
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	Delete(ctx context.Context, id string) error
}

type cascadeLikeRepository interface {
	ListByPost(ctx context.Context, postID string) ([]models.Like, error)
	Delete(ctx context.Context, id string) error
}

type mediaStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

type cascadeQueue interface {
	Enqueue(job jobs.Job) error
}

// PostService handles admin post mutations. Post deletion removes the post
// record immediately and hands comment/like cleanup to the cascade queue.
type PostService struct {
	posts    postRepository
	comments cascadeCommentRepository
	likes    cascadeLikeRepository
	storage  mediaStore
	queue    cascadeQueue
	notifier mirror.Notifier
	logger   *zap.Logger
}

// NewPostService constructs a PostService instance.
func NewPostService(posts postRepository, comments cascadeCommentRepository, likes cascadeLikeRepository, storage mediaStore, queue cascadeQueue, notifier mirror.Notifier, logger *zap.Logger) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{
		posts:    posts,
		comments: comments,
		likes:    likes,
		storage:  storage,
		queue:    queue,
		notifier: notifier,
		logger:   logger,
	}
}

// Create stores the uploaded media file and inserts the post record.
func (s *PostService) Create(ctx context.Context, title string, kind models.MediaKind, fileName string, file io.Reader) (*models.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "post title is required")
	}
	if !models.ValidMediaKind(kind) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported media kind")
	}
	if fileName == "" || file == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "media file is required")
	}

	id := uuid.NewString()
	relPath := filepath.Join("posts", id+filepath.Ext(fileName))
	storedPath, err := s.storage.SaveStream(relPath, file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store media file")
	}

	post := &models.Post{
		ID:        id,
		Title:     title,
		MediaKind: kind,
		FileName:  fileName,
		MediaRef:  storedPath,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		// Best-effort rollback of the orphaned file.
		if cleanupErr := s.storage.Delete(storedPath); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned media file", zap.String("path", storedPath), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to create post")
	}

	s.publish(ctx, mirror.CollectionPosts)
	return post, nil
}

// Delete removes a post and schedules the cascade that clears its comments,
// likes, and stored media file.
func (s *PostService) Delete(ctx context.Context, id string) error {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to delete post")
	}
	s.publish(ctx, mirror.CollectionPosts)

	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: JobTypePostCascade,
		Payload: CascadePayload{
			PostID:   post.ID,
			MediaRef: post.MediaRef,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		// The post itself is already gone; the orphaned engagement rows are
		// invisible to readers once the posts mirror refreshes.
		s.logger.Error("failed to enqueue post cascade",
			zap.String("post_id", post.ID), zap.Error(err))
	}
	return nil
}

// CascadePayload carries the identifiers the cascade worker needs.
type CascadePayload struct {
	PostID   string
	MediaRef string
}

// HandleCascade is the queue handler deleting a removed post's comments,
// likes, and media file. Every step is idempotent, so a retried job that
// already half-ran converges on the same end state.
func (s *PostService) HandleCascade(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(CascadePayload)
	if !ok {
		return fmt.Errorf("unexpected cascade payload %T", job.Payload)
	}

	comments, err := s.comments.ListByPost(ctx, payload.PostID)
	if err != nil {
		return fmt.Errorf("list comments for cascade: %w", err)
	}
	for _, c := range comments {
		if err := s.comments.Delete(ctx, c.ID); err != nil {
			return fmt.Errorf("cascade delete comment %s: %w", c.ID, err)
		}
	}
	if len(comments) > 0 {
		s.publish(ctx, mirror.CollectionComments)
	}

	likes, err := s.likes.ListByPost(ctx, payload.PostID)
	if err != nil {
		return fmt.Errorf("list likes for cascade: %w", err)
	}
	for _, l := range likes {
		if err := s.likes.Delete(ctx, l.ID); err != nil {
			return fmt.Errorf("cascade delete like %s: %w", l.ID, err)
		}
	}
	if len(likes) > 0 {
		s.publish(ctx, mirror.CollectionLikes)
	}

	if payload.MediaRef != "" {
		if err := s.storage.Delete(payload.MediaRef); err != nil {
			return fmt.Errorf("cascade delete media file: %w", err)
		}
	}

	s.logger.Info("post cascade completed",
		zap.String("post_id", payload.PostID),
		zap.Int("comments", len(comments)),
		zap.Int("likes", len(likes)))
	return nil
}

func (s *PostService) publish(ctx context.Context, collection mirror.Collection) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, collection); err != nil {
		s.logger.Warn("failed to publish collection change",
			zap.String("collection", string(collection)), zap.Error(err))
	}
}
