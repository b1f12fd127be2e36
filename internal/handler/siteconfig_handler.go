package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vaddzy/community-api/internal/models"
	"github.com/vaddzy/community-api/internal/service"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
	"github.com/vaddzy/community-api/pkg/response"
)

// SiteConfigHandler wires HTTP endpoints to the site config service.
type SiteConfigHandler struct {
	service *service.SiteConfigService
}

// NewSiteConfigHandler creates a new handler.
func NewSiteConfigHandler(svc *service.SiteConfigService) *SiteConfigHandler {
	return &SiteConfigHandler{service: svc}
}

// Get godoc
// @Summary Get the site configuration
// @Description Returns the site title and tagline, healing the document with defaults when missing
// @Tags SiteConfig
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /site-config [get]
func (h *SiteConfigHandler) Get(c *gin.Context) {
	cfg, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg)
}

// Update godoc
// @Summary Update the site configuration
// @Tags SiteConfig
// @Accept json
// @Produce json
// @Param payload body models.SiteConfig true "Site config"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /site-config [put]
func (h *SiteConfigHandler) Update(c *gin.Context) {
	var cfg models.SiteConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid site config payload"))
		return
	}

	updated, err := h.service.Update(c.Request.Context(), cfg)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated)
}
