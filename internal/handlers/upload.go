package handlers

import (
	"errors"
	"net/http"

	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/Kiril-Hr/blog-source-back/internal/services"
	"github.com/Kiril-Hr/blog-source-back/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UploadHandler struct {
	db      *gorm.DB
	store   *storage.Store
	cleaner *services.Cleaner
}

func NewUploadHandler(db *gorm.DB, store *storage.Store, cleaner *services.Cleaner) *UploadHandler {
	return &UploadHandler{db: db, store: store, cleaner: cleaner}
}

// UploadPostImage saves the multipart "image" field under uploads/post.
func (h *UploadHandler) UploadPostImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Image file is required")
		return
	}

	url, err := h.store.Save(fh, storage.DirPost)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidFilename) {
			respondError(c, http.StatusBadRequest, "Invalid file name")
			return
		}
		logger.Error.Printf("post image upload: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to upload image")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// DeleteImage queues /uploads/:directory/:filename for removal. Used by the
// editor when an image is swapped before the post is saved. Files a post or
// an avatar still points at are refused with 409.
func (h *UploadHandler) DeleteImage(c *gin.Context) {
	dir := c.Param("directory")
	if !storage.ValidDirectory(dir) {
		respondError(c, http.StatusBadRequest, "Invalid directory")
		return
	}

	url := storage.URLFor(dir, c.Param("filename"))
	if err := h.cleaner.EnqueueUnused(h.db.WithContext(c), url); err != nil {
		respondServiceError(c, err, "Failed to delete file")
		return
	}
	h.cleaner.Notify()

	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}
