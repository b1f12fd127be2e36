package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vaddzy/community-api/internal/models"
	"github.com/vaddzy/community-api/internal/service"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
	"github.com/vaddzy/community-api/pkg/response"
)

// MediaHandler wires HTTP endpoints to the media service.
type MediaHandler struct {
	service *service.MediaService
}

// NewMediaHandler creates a new handler.
func NewMediaHandler(svc *service.MediaService) *MediaHandler {
	return &MediaHandler{service: svc}
}

// Upload godoc
// @Summary Upload a media item
// @Description Stores a media file in the caller's personal showcase
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param media_kind formData string true "Media kind (image|video|audio)"
// @Param file formData file true "Media file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /media [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

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

	item, err := h.service.Upload(c.Request.Context(), claims.IdentityID, title, kind, fileHeader.Filename, src)
	if err != nil {
		response.Error(c, err)
		return
	}

	downloadURL, expiresAt, err := h.service.DownloadURL(item)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, item, map[string]interface{}{
		"download_token": downloadURL,
		"expires_at":     expiresAt,
	})
}

// Delete godoc
// @Summary Delete a media item
// @Description Removes one of the caller's media items and its stored file
// @Tags Media
// @Produce json
// @Param id path string true "Media ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /media/{id} [delete]
func (h *MediaHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.IdentityID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Download a media file via signed token
// @Tags Media
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /media/download [get]
func (h *MediaHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, name, err := h.service.Download(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat media file"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}
