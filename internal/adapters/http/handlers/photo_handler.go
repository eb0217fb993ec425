package handlers

import (
	"fmt"
	"mime/multipart"

	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/core/services"
	"dimos-fixit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PhotoHandler handles issue photo endpoints
type PhotoHandler struct {
	photoService *services.PhotoService
	log          *zap.SugaredLogger
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photoService *services.PhotoService, log *zap.SugaredLogger) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
		log:          log,
	}
}

// ListPhotos lists the photos of an issue
// @Summary List issue photos
// @Tags Photos
// @Produce json
// @Security BearerAuth
// @Param issueId path int true "Issue ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /photos/issues/{issueId} [get]
func (h *PhotoHandler) ListPhotos(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	issueID, err := pathID(c, "issueId")
	if err != nil {
		return response.FromError(c, err)
	}

	photos, err := h.photoService.List(c.UserContext(), a, issueID)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Photos retrieved successfully", photos)
}

// UploadPhotos stores a batch of photos
// @Summary Upload issue photos
// @Description Multipart field "photos"; JPEG, PNG or WebP. The whole batch is rejected when the issue would exceed its photo cap.
// @Tags Photos
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param issueId path int true "Issue ID"
// @Param photos formData file true "Photos"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /photos/issues/{issueId} [post]
func (h *PhotoHandler) UploadPhotos(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	issueID, err := pathID(c, "issueId")
	if err != nil {
		return response.FromError(c, err)
	}

	files, err := formFiles(c, "photos")
	if err != nil {
		return response.FromError(c, err)
	}

	photos, err := h.photoService.Upload(c.UserContext(), a, issueID, files)
	if err != nil {
		return fail(c, h.log, err)
	}

	return response.Created(c, fmt.Sprintf("%d photo(s) uploaded", len(photos)), photos)
}

// ServePhoto streams the stored image
// @Summary Download photo
// @Tags Photos
// @Produce image/jpeg,image/png,image/webp
// @Security BearerAuth
// @Param id path int true "Photo ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /photos/{id}/file [get]
func (h *PhotoHandler) ServePhoto(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	photo, rc, err := h.photoService.Open(c.UserContext(), a, id)
	if err != nil {
		return fail(c, h.log, err)
	}

	c.Set(fiber.HeaderContentType, photo.MimeType)
	c.Set(fiber.HeaderCacheControl, "private, max-age=86400")
	// the response body stream is closed once written
	return c.SendStream(rc, int(photo.Size))
}

// DeletePhoto removes a photo; uploader, issue owner or admin
// @Summary Delete photo
// @Tags Photos
// @Produce json
// @Security BearerAuth
// @Param id path int true "Photo ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /photos/{id} [delete]
func (h *PhotoHandler) DeletePhoto(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	if err := h.photoService.Delete(c.UserContext(), a, id); err != nil {
		return fail(c, h.log, err)
	}

	return response.Success(c, "Photo deleted successfully", nil)
}

// formFiles returns the files posted under field
func formFiles(c *fiber.Ctx, field string) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, domain.FieldError(field, "multipart/form-data body with field '"+field+"' is required")
	}
	return form.File[field], nil
}
