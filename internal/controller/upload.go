package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/krathong-voting/internal/blob"
	"github.com/saxenaaman628/krathong-voting/internal/metrics"
)

// UploadImage accepts a multipart form with "file" and "kind" and stores the
// image, returning its public URL for use in a registration.
func (h *Handler) UploadImage(c *gin.Context) {
	kind := c.PostForm("kind")
	label := kind
	if kind != "krathong" && kind != "team" {
		label = "unknown"
	}
	header, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", "file could not be read")
		return
	}
	defer file.Close()

	url, contentType, err := h.uploader.Upload(c.Request.Context(), kind, header.Filename, file)
	switch {
	case err == nil:
	case errors.Is(err, blob.ErrBadKind), errors.Is(err, blob.ErrNotImage):
		metrics.Uploads.WithLabelValues(label, "rejected").Inc()
		abortWithError(c, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	case errors.Is(err, blob.ErrTooLarge):
		metrics.Uploads.WithLabelValues(label, "rejected").Inc()
		abortWithError(c, http.StatusRequestEntityTooLarge, "too_large", err.Error())
		return
	default:
		metrics.Uploads.WithLabelValues(label, "error").Inc()
		_ = c.Error(err)
		h.log.Error().Err(err).Str("kind", kind).Msg("upload failed")
		abortWithError(c, http.StatusInternalServerError, "internal", "Upload failed, please try again")
		return
	}

	metrics.Uploads.WithLabelValues(label, "ok").Inc()
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"url": url, "contentType": contentType}})
}
