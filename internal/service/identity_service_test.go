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

type mockRosterRepo struct {
	identities map[string]*models.Identity
}

func (m *mockRosterRepo) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	if identity, ok := m.identities[id]; ok {
		return identity, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRosterRepo) List(ctx context.Context) ([]models.Identity, error) {
	out := make([]models.Identity, 0, len(m.identities))
	for _, identity := range m.identities {
		out = append(out, *identity)
	}
	return out, nil
}

func (m *mockRosterRepo) UpdateBan(ctx context.Context, id string, banned bool) error {
	m.identities[id].IsBanned = banned
	return nil
}

func (m *mockRosterRepo) UpdateAvatar(ctx context.Context, id, avatarRef string) error {
	if identity, ok := m.identities[id]; ok {
		identity.AvatarRef = avatarRef
	}
	return nil
}

func (m *mockRosterRepo) Delete(ctx context.Context, id string) error {
	delete(m.identities, id)
	return nil
}

func TestIdentityServiceToggleBan(t *testing.T) {
	repo := &mockRosterRepo{identities: map[string]*models.Identity{
		"v1": {ID: "v1", Username: "nova"},
	}}
	notifier := &recordingNotifier{}
	svc := NewIdentityService(repo, &mockStorage{}, notifier, zap.NewNop())

	banned, err := svc.ToggleBan(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, banned)
	assert.True(t, repo.identities["v1"].IsBanned)

	banned, err = svc.ToggleBan(context.Background(), "v1")
	require.NoError(t, err)
	assert.False(t, banned)
	assert.False(t, repo.identities["v1"].IsBanned)

	assert.Equal(t, []mirror.Collection{mirror.CollectionUsers, mirror.CollectionUsers}, notifier.published)
}

func TestIdentityServiceToggleBanUnknown(t *testing.T) {
	svc := NewIdentityService(&mockRosterRepo{}, &mockStorage{}, nil, zap.NewNop())

	_, err := svc.ToggleBan(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestIdentityServiceDelete(t *testing.T) {
	repo := &mockRosterRepo{identities: map[string]*models.Identity{
		"v1": {ID: "v1", Username: "nova"},
	}}
	svc := NewIdentityService(repo, &mockStorage{}, &recordingNotifier{}, zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "v1"))
	assert.Empty(t, repo.identities)
}

func TestIdentityServiceListStripsSecrets(t *testing.T) {
	repo := &mockRosterRepo{identities: map[string]*models.Identity{
		"v1": {ID: "v1", Username: "nova", SecretHash: "hash", Role: models.RoleVisitor},
	}}
	svc := NewIdentityService(repo, &mockStorage{}, nil, zap.NewNop())

	infos, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "nova", infos[0].Username)
}
