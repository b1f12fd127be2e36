package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vaddzy/community-api/internal/mirror"
	"github.com/vaddzy/community-api/internal/models"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
)

type mockIdentityRepo struct {
	byUsername map[string]*models.Identity
	byID       map[string]*models.Identity
	createErr  error
	created    []*models.Identity
}

func (m *mockIdentityRepo) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	if identity, ok := m.byID[id]; ok {
		return identity, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockIdentityRepo) FindByUsername(ctx context.Context, username string) (*models.Identity, error) {
	if identity, ok := m.byUsername[username]; ok {
		return identity, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockIdentityRepo) Create(ctx context.Context, identity *models.Identity) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, identity)
	return nil
}

type recordingNotifier struct {
	published []mirror.Collection
}

func (n *recordingNotifier) Publish(ctx context.Context, collection mirror.Collection) error {
	n.published = append(n.published, collection)
	return nil
}

func newSessionService(repo *mockIdentityRepo, notifier mirror.Notifier) *SessionService {
	return NewSessionService(repo, notifier, validator.New(), zap.NewNop(), SessionConfig{
		TokenSecret:   "secret",
		TokenExpiry:   time.Hour,
		Issuer:        "test",
		AdminUsername: "Gaston",
		AdminPassword: "display80",
	})
}

func TestSessionServiceSignInAnonymous(t *testing.T) {
	svc := newSessionService(&mockIdentityRepo{}, nil)

	res, err := svc.SignInAnonymous(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, models.RoleAnonymous, res.Identity.Role)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.Identity.ID, claims.IdentityID)
	assert.Equal(t, models.RoleAnonymous, claims.Role)
}

func TestSessionServiceAdminLogin(t *testing.T) {
	svc := newSessionService(&mockIdentityRepo{}, nil)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "Gaston", Password: "display80"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.Identity.Role)
	assert.Equal(t, models.AdminIdentityID, res.Identity.ID)
}

func TestSessionServiceVisitorLogin(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)
	repo := &mockIdentityRepo{byUsername: map[string]*models.Identity{
		"nova": {ID: "v1", Username: "nova", SecretHash: string(hash), Role: models.RoleVisitor},
	}}
	svc := newSessionService(repo, nil)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "nova", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "v1", res.Identity.ID)
	assert.Equal(t, models.RoleVisitor, res.Identity.Role)
}

func TestSessionServiceLoginWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)
	repo := &mockIdentityRepo{byUsername: map[string]*models.Identity{
		"nova": {ID: "v1", Username: "nova", SecretHash: string(hash), Role: models.RoleVisitor},
	}}
	svc := newSessionService(repo, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "nova", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceLoginUnknownUser(t *testing.T) {
	svc := newSessionService(&mockIdentityRepo{}, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceLoginBannedBeatsCredentials(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)
	repo := &mockIdentityRepo{byUsername: map[string]*models.Identity{
		"nova": {ID: "v1", Username: "nova", SecretHash: string(hash), Role: models.RoleVisitor, IsBanned: true},
	}}
	svc := newSessionService(repo, nil)

	// Correct credentials on a banned account must surface BANNED, not
	// INVALID_CREDENTIALS.
	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "nova", Password: "hunter22"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBanned.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceRegister(t *testing.T) {
	repo := &mockIdentityRepo{}
	notifier := &recordingNotifier{}
	svc := newSessionService(repo, notifier)

	res, err := svc.Register(context.Background(), models.RegisterRequest{Username: "nova", Password: "hunter22"})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)

	created := repo.created[0]
	assert.Equal(t, models.RoleVisitor, created.Role)
	assert.NotEqual(t, "hunter22", created.SecretHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.SecretHash), []byte("hunter22")))
	assert.Contains(t, created.AvatarRef, "placehold.co")
	assert.Equal(t, created.ID, res.Identity.ID)
	assert.Equal(t, []mirror.Collection{mirror.CollectionUsers}, notifier.published)
}

func TestSessionServiceRegisterUsernameTaken(t *testing.T) {
	repo := &mockIdentityRepo{byUsername: map[string]*models.Identity{
		"nova": {ID: "v1", Username: "nova"},
	}}
	svc := newSessionService(repo, nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "nova", Password: "hunter22"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUsernameTaken.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceRegisterAdminNameReserved(t *testing.T) {
	svc := newSessionService(&mockIdentityRepo{}, nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "gaston", Password: "hunter22"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUsernameTaken.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := newSessionService(&mockIdentityRepo{}, nil)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceCurrentIdentityReflectsBan(t *testing.T) {
	repo := &mockIdentityRepo{byID: map[string]*models.Identity{
		"v1": {ID: "v1", Username: "nova", Role: models.RoleVisitor, IsBanned: true},
	}}
	svc := newSessionService(repo, nil)

	info, err := svc.CurrentIdentity(context.Background(), &models.JWTClaims{IdentityID: "v1", Username: "nova", Role: models.RoleVisitor})
	require.NoError(t, err)
	assert.True(t, info.IsBanned)
}

func TestDefaultAvatarRef(t *testing.T) {
	assert.Contains(t, DefaultAvatarRef("nova"), "text=n")
	assert.Contains(t, DefaultAvatarRef(""), "text=%3F")
}
