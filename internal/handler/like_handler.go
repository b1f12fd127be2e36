package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vaddzy/community-api/internal/service"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
	"github.com/vaddzy/community-api/pkg/response"
)

// LikeHandler wires HTTP endpoints to the like service.
type LikeHandler struct {
	service *service.LikeService
}

// NewLikeHandler creates a new handler.
func NewLikeHandler(svc *service.LikeService) *LikeHandler {
	return &LikeHandler{service: svc}
}

// Toggle godoc
// @Summary Toggle a like on a post
// @Description Adds the caller's like when absent, removes it when present
// @Tags Likes
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id}/like [post]
func (h *LikeHandler) Toggle(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	liked, err := h.service.Toggle(c.Request.Context(), claims.IdentityID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"liked": liked})
}
