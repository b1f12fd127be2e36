package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vaddzy/community-api/internal/models"
	"github.com/vaddzy/community-api/internal/service"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
	"github.com/vaddzy/community-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the session service.
type AuthHandler struct {
	service *service.SessionService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.SessionService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Anonymous godoc
// @Summary Open an anonymous session
// @Description Issues an access token for a throwaway anonymous identity
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/anonymous [post]
func (h *AuthHandler) Anonymous(c *gin.Context) {
	res, err := h.service.SignInAnonymous(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Login godoc
// @Summary Authenticate an identity
// @Description Authenticates a visitor or the admin by username and password
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Register godoc
// @Summary Register a visitor
// @Description Creates a visitor identity and opens a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Register payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid register payload"))
		return
	}

	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Logout godoc
// @Summary Close the current session
// @Tags Sessions
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	h.service.SignOut(c.Request.Context(), claims.IdentityID)
	response.NoContent(c)
}

// Me godoc
// @Summary Get current identity
// @Description Returns the authenticated identity, re-read from storage for visitors
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	info, err := h.service.CurrentIdentity(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, info)
}
