package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vaddzy/community-api/internal/mirror"
	"github.com/vaddzy/community-api/internal/models"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
)

type mockCommentRepo struct {
	comments map[string]*models.Comment
}

func (m *mockCommentRepo) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	if c, ok := m.comments[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	if m.comments == nil {
		m.comments = make(map[string]*models.Comment)
	}
	m.comments[comment.ID] = comment
	return nil
}

func (m *mockCommentRepo) Delete(ctx context.Context, id string) error {
	delete(m.comments, id)
	return nil
}

func visitorClaims(id, username string) *models.JWTClaims {
	return &models.JWTClaims{IdentityID: id, Username: username, Role: models.RoleVisitor}
}

func TestCommentServiceAdd(t *testing.T) {
	comments := &mockCommentRepo{}
	posts := &mockPostFinder{posts: map[string]*models.Post{"p1": {ID: "p1"}}}
	notifier := &recordingNotifier{}
	svc := NewCommentService(comments, posts, notifier, zap.NewNop())

	comment, err := svc.Add(context.Background(), visitorClaims("v1", "nova"), "p1", "  great track  ")
	require.NoError(t, err)
	assert.Equal(t, "great track", comment.Text)
	assert.Equal(t, "nova", comment.AuthorUsername)
	assert.Equal(t, "v1", comment.AuthorID)
	assert.Equal(t, []mirror.Collection{mirror.CollectionComments}, notifier.published)
}

func TestCommentServiceAddRejectsBlankText(t *testing.T) {
	svc := NewCommentService(&mockCommentRepo{}, &mockPostFinder{posts: map[string]*models.Post{"p1": {ID: "p1"}}}, nil, zap.NewNop())

	_, err := svc.Add(context.Background(), visitorClaims("v1", "nova"), "p1", "   ")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCommentServiceAddUnknownPost(t *testing.T) {
	svc := NewCommentService(&mockCommentRepo{}, &mockPostFinder{}, nil, zap.NewNop())

	_, err := svc.Add(context.Background(), visitorClaims("v1", "nova"), "missing", "hello")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCommentServiceDeleteByAuthor(t *testing.T) {
	comments := &mockCommentRepo{comments: map[string]*models.Comment{
		"c1": {ID: "c1", PostID: "p1", AuthorID: "v1"},
	}}
	svc := NewCommentService(comments, &mockPostFinder{}, nil, zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), visitorClaims("v1", "nova"), "c1"))
	assert.Empty(t, comments.comments)
}

func TestCommentServiceDeleteForbiddenForOthers(t *testing.T) {
	comments := &mockCommentRepo{comments: map[string]*models.Comment{
		"c1": {ID: "c1", PostID: "p1", AuthorID: "v1"},
	}}
	svc := NewCommentService(comments, &mockPostFinder{}, nil, zap.NewNop())

	err := svc.Delete(context.Background(), visitorClaims("v2", "rival"), "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Len(t, comments.comments, 1)
}

func TestCommentServiceDeleteByAdmin(t *testing.T) {
	comments := &mockCommentRepo{comments: map[string]*models.Comment{
		"c1": {ID: "c1", PostID: "p1", AuthorID: "v1"},
	}}
	svc := NewCommentService(comments, &mockPostFinder{}, nil, zap.NewNop())

	admin := &models.JWTClaims{IdentityID: models.AdminIdentityID, Role: models.RoleAdmin}
	require.NoError(t, svc.Delete(context.Background(), admin, "c1"))
	assert.Empty(t, comments.comments)
}
