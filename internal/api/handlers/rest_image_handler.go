package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/omarcisse97/sopo/internal/storage"
)

// RestImageHandler serves stored images for backends without a public URL of their own.
type RestImageHandler struct {
	images storage.IImageStorage
}

func NewRestImageHandler(images storage.IImageStorage) *RestImageHandler {
	return &RestImageHandler{images: images}
}

// GetImage handles GET /v1/images/*key
func (h *RestImageHandler) GetImage(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	body, contentType, err := h.images.GetObject(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load image"})
		}
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "public, max-age=86400, immutable")
	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}
