package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vaddzy/community-api/internal/models"
	"github.com/vaddzy/community-api/internal/service"
	"github.com/vaddzy/community-api/pkg/response"
)

// FeedHandler serves the derived read-only projections.
type FeedHandler struct {
	service *service.ViewService
}

// NewFeedHandler creates a new handler.
func NewFeedHandler(svc *service.ViewService) *FeedHandler {
	return &FeedHandler{service: svc}
}

// Feed godoc
// @Summary Get the post feed
// @Description Returns posts newest-first with like counts, per-caller like state, and threaded comments
// @Tags Feed
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /feed [get]
func (h *FeedHandler) Feed(c *gin.Context) {
	identityID := ""
	if claims := claimsFromContext(c); claims != nil && claims.Role != models.RoleAnonymous {
		identityID = claims.IdentityID
	}

	items, err := h.service.Feed(c.Request.Context(), identityID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// Sections godoc
// @Summary Get visible app sections
// @Description Returns the app states reachable for the caller's role
// @Tags Feed
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *FeedHandler) Sections(c *gin.Context) {
	role := models.RoleAnonymous
	if claims := claimsFromContext(c); claims != nil {
		role = claims.Role
	}
	response.JSON(c, http.StatusOK, gin.H{"sections": h.service.Sections(role)})
}
