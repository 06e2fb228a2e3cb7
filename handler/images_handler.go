package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"notebook/model"
	"notebook/repository"
	"notebook/utils"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// ImageOpener reads stored image bytes. Both image stores implement it.
type ImageOpener interface {
	Open(ctx context.Context, loc model.Locator) (io.ReadCloser, error)
}

// ImagesHandler serves the URLs produced by Resolve.
type ImagesHandler struct {
	images ImageOpener
	logger *slog.Logger
}

func NewImagesHandler(images ImageOpener, logger *slog.Logger) *ImagesHandler {
	return &ImagesHandler{images: images, logger: logger}
}

// GetImage handles GET /images/*locator.
func (h *ImagesHandler) GetImage(c *gin.Context) {
	loc := model.Locator(strings.TrimPrefix(c.Param("locator"), "/"))

	rc, err := h.images.Open(c.Request.Context(), loc)
	switch {
	case errors.Is(err, repository.ErrInvalidLocator), errors.Is(err, repository.ErrInvalidNoteID):
		utils.BadRequest(c, "Invalid image locator")
		return
	case errors.Is(err, repository.ErrImageNotFound):
		utils.NotFound(c, "Image not found")
		return
	case err != nil:
		h.logger.Error("failed to open image", "locator", loc, "error", err)
		utils.InternalError(c, "Failed to load image")
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, model.MaxImageSize+1))
	if err != nil {
		h.logger.Error("failed to read image", "locator", loc, "error", err)
		utils.InternalError(c, "Failed to load image")
		return
	}
	if len(data) > model.MaxImageSize {
		h.logger.Error("stored image exceeds size limit", "locator", loc, "limit", model.MaxImageSize)
		utils.InternalError(c, "Image too large")
		return
	}

	utils.ImageDownloadsTotal.WithLabelValues(utils.ClientFamily(c.Request.UserAgent())).Inc()
	c.Data(200, mimetype.Detect(data).String(), data)
}
