package service

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vaddzy/community-api/internal/mirror"
	"github.com/vaddzy/community-api/internal/models"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
	"github.com/vaddzy/community-api/pkg/jobs"
)

type mockPostRepo struct {
	posts map[string]*models.Post
}

func (m *mockPostRepo) List(ctx context.Context) ([]models.Post, error) {
	out := make([]models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*models.Post, error) {
	if p, ok := m.posts[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPostRepo) Create(ctx context.Context, post *models.Post) error {
	if m.posts == nil {
		m.posts = make(map[string]*models.Post)
	}
	m.posts[post.ID] = post
	return nil
}

func (m *mockPostRepo) Delete(ctx context.Context, id string) error {
	delete(m.posts, id)
	return nil
}

type mockCascadeComments struct {
	comments map[string][]models.Comment
	deleted  []string
}

func (m *mockCascadeComments) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	return m.comments[postID], nil
}

func (m *mockCascadeComments) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockCascadeLikes struct {
	likes   map[string][]models.Like
	deleted []string
}

func (m *mockCascadeLikes) ListByPost(ctx context.Context, postID string) ([]models.Like, error) {
	return m.likes[postID], nil
}

func (m *mockCascadeLikes) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockStorage struct {
	saved   map[string]string
	deleted []string
}

func (m *mockStorage) SaveStream(filename string, r io.Reader) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string]string)
	}
	content, _ := io.ReadAll(r)
	m.saved[filename] = string(content)
	return filename, nil
}

func (m *mockStorage) Delete(filename string) error {
	m.deleted = append(m.deleted, filename)
	delete(m.saved, filename)
	return nil
}

type mockQueue struct {
	jobs []jobs.Job
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

func newPostService(posts *mockPostRepo, comments *mockCascadeComments, likes *mockCascadeLikes, store *mockStorage, queue *mockQueue, notifier mirror.Notifier) *PostService {
	return NewPostService(posts, comments, likes, store, queue, notifier, zap.NewNop())
}

func TestPostServiceCreate(t *testing.T) {
	posts := &mockPostRepo{}
	store := &mockStorage{}
	notifier := &recordingNotifier{}
	svc := newPostService(posts, &mockCascadeComments{}, &mockCascadeLikes{}, store, &mockQueue{}, notifier)

	post, err := svc.Create(context.Background(), "New drop", models.MediaKindAudio, "track.mp3", strings.NewReader("audio-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "New drop", post.Title)
	assert.NotEmpty(t, post.MediaRef)
	assert.Len(t, store.saved, 1)
	assert.Equal(t, []mirror.Collection{mirror.CollectionPosts}, notifier.published)
}

func TestPostServiceCreateRejectsBadKind(t *testing.T) {
	svc := newPostService(&mockPostRepo{}, &mockCascadeComments{}, &mockCascadeLikes{}, &mockStorage{}, &mockQueue{}, nil)

	_, err := svc.Create(context.Background(), "title", models.MediaKind("gif"), "a.gif", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPostServiceDeleteEnqueuesCascade(t *testing.T) {
	posts := &mockPostRepo{posts: map[string]*models.Post{
		"p1": {ID: "p1", Title: "old", MediaRef: "posts/p1.mp3"},
	}}
	queue := &mockQueue{}
	notifier := &recordingNotifier{}
	svc := newPostService(posts, &mockCascadeComments{}, &mockCascadeLikes{}, &mockStorage{}, queue, notifier)

	require.NoError(t, svc.Delete(context.Background(), "p1"))
	assert.Empty(t, posts.posts)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypePostCascade, queue.jobs[0].Type)

	payload := queue.jobs[0].Payload.(CascadePayload)
	assert.Equal(t, "p1", payload.PostID)
	assert.Equal(t, "posts/p1.mp3", payload.MediaRef)
}

func TestPostServiceDeleteUnknownPost(t *testing.T) {
	svc := newPostService(&mockPostRepo{}, &mockCascadeComments{}, &mockCascadeLikes{}, &mockStorage{}, &mockQueue{}, nil)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPostServiceHandleCascade(t *testing.T) {
	comments := &mockCascadeComments{comments: map[string][]models.Comment{
		"p1": {{ID: "c1", PostID: "p1"}, {ID: "c2", PostID: "p1"}},
	}}
	likes := &mockCascadeLikes{likes: map[string][]models.Like{
		"p1": {{ID: "l1", PostID: "p1"}},
	}}
	store := &mockStorage{saved: map[string]string{"posts/p1.mp3": "x"}}
	notifier := &recordingNotifier{}
	svc := newPostService(&mockPostRepo{}, comments, likes, store, &mockQueue{}, notifier)

	err := svc.HandleCascade(context.Background(), jobs.Job{
		Type:    JobTypePostCascade,
		Payload: CascadePayload{PostID: "p1", MediaRef: "posts/p1.mp3"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"c1", "c2"}, comments.deleted)
	assert.Equal(t, []string{"l1"}, likes.deleted)
	assert.Equal(t, []string{"posts/p1.mp3"}, store.deleted)
	assert.Equal(t, []mirror.Collection{mirror.CollectionComments, mirror.CollectionLikes}, notifier.published)
}

func TestPostServiceHandleCascadeIdempotentOnEmpty(t *testing.T) {
	// A retried job whose records are already gone converges without error
	// and without publishing spurious notifications.
	notifier := &recordingNotifier{}
	svc := newPostService(&mockPostRepo{}, &mockCascadeComments{}, &mockCascadeLikes{}, &mockStorage{}, &mockQueue{}, notifier)

	err := svc.HandleCascade(context.Background(), jobs.Job{
		Type:    JobTypePostCascade,
		Payload: CascadePayload{PostID: "p1"},
	})
	require.NoError(t, err)
	assert.Empty(t, notifier.published)
}
