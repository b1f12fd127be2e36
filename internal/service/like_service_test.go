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

type mockLikeRepo struct {
	likes map[string]*models.Like // keyed by id
}

func (m *mockLikeRepo) FindByPostAndUser(ctx context.Context, postID, userID string) (*models.Like, error) {
	for _, l := range m.likes {
		if l.PostID == postID && l.UserID == userID {
			return l, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockLikeRepo) Create(ctx context.Context, like *models.Like) error {
	if m.likes == nil {
		m.likes = make(map[string]*models.Like)
	}
	m.likes[like.ID] = like
	return nil
}

func (m *mockLikeRepo) Delete(ctx context.Context, id string) error {
	delete(m.likes, id)
	return nil
}

type mockPostFinder struct {
	posts map[string]*models.Post
}

func (m *mockPostFinder) FindByID(ctx context.Context, id string) (*models.Post, error) {
	if p, ok := m.posts[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func TestLikeServiceToggleAlternates(t *testing.T) {
	likes := &mockLikeRepo{}
	posts := &mockPostFinder{posts: map[string]*models.Post{"p1": {ID: "p1"}}}
	notifier := &recordingNotifier{}
	svc := NewLikeService(likes, posts, notifier, zap.NewNop())

	liked, err := svc.Toggle(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Len(t, likes.likes, 1)

	liked, err = svc.Toggle(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Len(t, likes.likes, 0)

	liked, err = svc.Toggle(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.True(t, liked)

	assert.Equal(t, []mirror.Collection{
		mirror.CollectionLikes, mirror.CollectionLikes, mirror.CollectionLikes,
	}, notifier.published)
}

func TestLikeServiceToggleUnknownPost(t *testing.T) {
	svc := NewLikeService(&mockLikeRepo{}, &mockPostFinder{}, nil, zap.NewNop())

	_, err := svc.Toggle(context.Background(), "u1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLikeIDDeterministic(t *testing.T) {
	a := LikeID("p1", "u1")
	b := LikeID("p1", "u1")
	c := LikeID("p1", "u2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
