package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vaddzy/community-api/internal/mirror"
	"github.com/vaddzy/community-api/internal/models"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
)

const uniqueViolation = "23505"

type sessionIdentityRepository interface {
	FindByID(ctx context.Context, id string) (*models.Identity, error)
	FindByUsername(ctx context.Context, username string) (*models.Identity, error)
	Create(ctx context.Context, identity *models.Identity) error
}

// SessionConfig defines configuration for session flows. Admin credentials
// are held here, out of band; the admin identity never touches storage.
type SessionConfig struct {
	TokenSecret   string
	TokenExpiry   time.Duration
	Issuer        string
	AdminUsername string
	AdminPassword string
	AdminAvatar   string
}

// SessionService owns identity lifecycle: anonymous sign-in, visitor
// registration and login, admin login, and token validation.
type SessionService struct {
	repo      sessionIdentityRepository
	notifier  mirror.Notifier
	validator *validator.Validate
	logger    *zap.Logger
	config    SessionConfig
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(repo sessionIdentityRepository, notifier mirror.Notifier, validate *validator.Validate, logger *zap.Logger, config SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SessionService{repo: repo, notifier: notifier, validator: validate, logger: logger, config: config}
}

// SignInAnonymous issues a token for a fresh anonymous identity. Nothing is
// persisted; the identity exists only in the token.
func (s *SessionService) SignInAnonymous(ctx context.Context) (*models.SessionResponse, error) {
	identity := &models.Identity{
		ID:       uuid.NewString(),
		Username: "anonymous",
		Role:     models.RoleAnonymous,
	}
	return s.issueSession(identity)
}

// Login authenticates either the configured admin or a registered visitor.
// Banned visitors fail with BANNED even on correct credentials.
func (s *SessionService) Login(ctx context.Context, req models.LoginRequest) (*models.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	if s.isAdmin(req.Username, req.Password) {
		admin := &models.Identity{
			ID:        models.AdminIdentityID,
			Username:  s.config.AdminUsername,
			Role:      models.RoleAdmin,
			AvatarRef: s.config.AdminAvatar,
		}
		s.logger.Info("admin session opened", zap.String("username", admin.Username))
		return s.issueSession(admin)
	}

	identity, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch identity")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.SecretHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	if identity.IsBanned {
		return nil, appErrors.Clone(appErrors.ErrBanned, "")
	}

	return s.issueSession(identity)
}

// Register creates a visitor identity. Uniqueness is enforced twice: a fast
// check against the current identity set, and the unique index underneath it
// for the concurrent-registration race the in-memory check cannot close.
func (s *SessionService) Register(ctx context.Context, req models.RegisterRequest) (*models.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid register payload")
	}

	if strings.EqualFold(req.Username, s.config.AdminUsername) {
		return nil, appErrors.Clone(appErrors.ErrUsernameTaken, "")
	}

	if _, err := s.repo.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrUsernameTaken, "")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash secret")
	}

	identity := &models.Identity{
		ID:         uuid.NewString(),
		Username:   req.Username,
		SecretHash: string(hash),
		Role:       models.RoleVisitor,
		IsBanned:   false,
		AvatarRef:  DefaultAvatarRef(req.Username),
	}

	if err := s.repo.Create(ctx, identity); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, appErrors.Clone(appErrors.ErrUsernameTaken, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrMutationFailure.Code, appErrors.ErrMutationFailure.Status, "failed to create identity")
	}

	s.publishUsers(ctx)
	return s.issueSession(identity)
}

// SignOut closes the session. Tokens are stateless, so the server side only
// records the event; the mirror teardown happens when the stream disconnects.
func (s *SessionService) SignOut(ctx context.Context, identityID string) {
	s.logger.Info("session closed", zap.String("identity_id", identityID))
}

// CurrentIdentity resolves claims into a live identity. Visitor records are
// re-read from storage so ban or avatar changes are observed; admin and
// anonymous identities are synthetic.
func (s *SessionService) CurrentIdentity(ctx context.Context, claims *models.JWTClaims) (*models.IdentityInfo, error) {
	switch claims.Role {
	case models.RoleAdmin:
		info := models.IdentityInfo{
			ID:        models.AdminIdentityID,
			Username:  s.config.AdminUsername,
			Role:      models.RoleAdmin,
			AvatarRef: s.config.AdminAvatar,
		}
		return &info, nil
	case models.RoleAnonymous:
		info := models.IdentityInfo{ID: claims.IdentityID, Username: claims.Username, Role: models.RoleAnonymous}
		return &info, nil
	}

	identity, err := s.repo.FindByID(ctx, claims.IdentityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "identity no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load identity")
	}
	info := identity.Info()
	return &info, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *SessionService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *SessionService) isAdmin(username, password string) bool {
	if s.config.AdminUsername == "" || s.config.AdminPassword == "" {
		return false
	}
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(s.config.AdminUsername))
	passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(s.config.AdminPassword))
	return userMatch == 1 && passMatch == 1
}

func (s *SessionService) issueSession(identity *models.Identity) (*models.SessionResponse, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.JWTClaims{
		IdentityID: identity.ID,
		Username:   identity.Username,
		Role:       identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	return &models.SessionResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		Identity:    identity.Info(),
	}, nil
}

func (s *SessionService) publishUsers(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, mirror.CollectionUsers); err != nil {
		s.logger.Warn("failed to publish users change", zap.Error(err))
	}
}

// DefaultAvatarRef builds the placeholder avatar reference used when an
// identity has not uploaded a picture yet.
func DefaultAvatarRef(username string) string {
	initial := "?"
	if username != "" {
		initial = string([]rune(username)[0])
	}
	return "https://placehold.co/200x200/52525B/FFFFFF?text=" + url.QueryEscape(initial)
}
