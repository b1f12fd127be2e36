package service

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vaddzy/community-api/internal/mirror"
	"github.com/vaddzy/community-api/internal/models"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
	"github.com/vaddzy/community-api/pkg/storage"
)

type mockMediaRepo struct {
	items map[string]*models.MediaItem
}

func (m *mockMediaRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.MediaItem, error) {
	out := make([]models.MediaItem, 0)
	for _, item := range m.items {
		if item.OwnerID == ownerID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *mockMediaRepo) FindByID(ctx context.Context, id string) (*models.MediaItem, error) {
	if item, ok := m.items[id]; ok {
		return item, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMediaRepo) Create(ctx context.Context, item *models.MediaItem) error {
	if m.items == nil {
		m.items = make(map[string]*models.MediaItem)
	}
	m.items[item.ID] = item
	return nil
}

func (m *mockMediaRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func newMediaService(t *testing.T, repo *mockMediaRepo, notifier mirror.Notifier) *MediaService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewMediaService(repo, store, signer, notifier, zap.NewNop())
}

func TestMediaServiceUploadAndDownload(t *testing.T) {
	repo := &mockMediaRepo{}
	notifier := &recordingNotifier{}
	svc := newMediaService(t, repo, notifier)

	item, err := svc.Upload(context.Background(), "v1", "My beat", models.MediaKindAudio, "beat.wav", strings.NewReader("wav-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "v1", item.OwnerID)
	assert.Len(t, repo.items, 1)
	assert.Equal(t, []mirror.Collection{mirror.MediaCollection("v1")}, notifier.published)

	token, _, err := svc.DownloadURL(item)
	require.NoError(t, err)

	file, name, err := svc.Download(token)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "wav-bytes", string(content))
	assert.Contains(t, name, ".wav")
}

func TestMediaServiceDownloadRejectsTamperedToken(t *testing.T) {
	svc := newMediaService(t, &mockMediaRepo{}, nil)

	_, _, err := svc.Download("bad.token.value.sig")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestMediaServiceDeleteScopedToOwner(t *testing.T) {
	repo := &mockMediaRepo{items: map[string]*models.MediaItem{
		"m1": {ID: "m1", OwnerID: "v1", MediaRef: "media/v1/m1.wav"},
	}}
	svc := newMediaService(t, repo, nil)

	err := svc.Delete(context.Background(), "v2", "m1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.items, 1)

	require.NoError(t, svc.Delete(context.Background(), "v1", "m1"))
	assert.Empty(t, repo.items)
}

func TestMediaServiceUploadRejectsBadKind(t *testing.T) {
	svc := newMediaService(t, &mockMediaRepo{}, nil)

	_, err := svc.Upload(context.Background(), "v1", "title", models.MediaKind("doc"), "a.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
