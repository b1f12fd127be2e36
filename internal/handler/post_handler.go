package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/vaddzy/community-api/internal/models"
	"github.com/vaddzy/community-api/internal/service"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
	"github.com/vaddzy/community-api/pkg/response"
)

// PostHandler wires HTTP endpoints to the post service.
type PostHandler struct {
	service *service.PostService
}

// NewPostHandler creates a new handler.
func NewPostHandler(svc *service.PostService) *PostHandler {
	return &PostHandler{service: svc}
}

// Create godoc
// @Summary Publish a post
// @Description Uploads a media file and publishes an admin post
// @Tags Posts
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param media_kind formData string true "Media kind (image|video|audio)"
// @Param file formData file true "Media file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	title := c.PostForm("title")
	kind := models.MediaKind(c.PostForm("media_kind"))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "media file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close() //nolint:errcheck

	post, err := h.service.Create(c.Request.Context(), title, kind, fileHeader.Filename, src)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, post)
}

// Delete godoc
// @Summary Delete a post
// @Description Removes a post; its comments, likes, and media file are cleaned up in the background
// @Tags Posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id} [delete]
func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
