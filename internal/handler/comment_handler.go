package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vaddzy/community-api/internal/service"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
	"github.com/vaddzy/community-api/pkg/response"
)

// CommentHandler wires HTTP endpoints to the comment service.
type CommentHandler struct {
	service *service.CommentService
}

// NewCommentHandler creates a new handler.
func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{service: svc}
}

// Create godoc
// @Summary Comment on a post
// @Tags Comments
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body object true "Comment text"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id}/comments [post]
func (h *CommentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "comment text required"))
		return
	}

	comment, err := h.service.Add(c.Request.Context(), claims, c.Param("id"), payload.Text)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, comment)
}

// Delete godoc
// @Summary Delete a comment
// @Description Authors delete their own comments; the admin may delete any
// @Tags Comments
// @Produce json
// @Param id path string true "Comment ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /comments/{id} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
