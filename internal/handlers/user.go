package handlers

import (
	"errors"
	"net/http"

	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/Kiril-Hr/blog-source-back/internal/models"
	"github.com/Kiril-Hr/blog-source-back/internal/services"
	"github.com/Kiril-Hr/blog-source-back/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserHandler struct {
	db      *gorm.DB
	store   *storage.Store
	cleaner *services.Cleaner
}

func NewUserHandler(db *gorm.DB, store *storage.Store, cleaner *services.Cleaner) *UserHandler {
	return &UserHandler{db: db, store: store, cleaner: cleaner}
}

// GetAllBlogs lists users that have at least one published post.
func (h *UserHandler) GetAllBlogs(c *gin.Context) {
	var users []models.User
	if err := h.db.WithContext(c).Where("posts_count > ?", 0).Order("id").Find(&users).Error; err != nil {
		logger.Error.Printf("blogs: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to get list of blogs")
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetOneUser answers [user, posts], the shape the frontend reads.
func (h *UserHandler) GetOneUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var user models.User
	if err := h.db.WithContext(c).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "User has not found")
			return
		}
		logger.Error.Printf("get user %d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "Failed to get user and posts")
		return
	}

	posts := []models.Post{}
	if err := h.db.WithContext(c).
		Where("user_id = ? AND status = ?", id, models.StatusPublished).
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		logger.Error.Printf("get posts of user %d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "Failed to get user and posts")
		return
	}

	c.JSON(http.StatusOK, []interface{}{user, posts})
}

// UploadAvatar stores a new avatar for the caller and queues the previous
// file for deletion.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if id != currentUserID(c) {
		respondError(c, http.StatusForbidden, "No access")
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Image file is required")
		return
	}
	avatarURL, err := h.store.Save(fh, storage.DirUser)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidFilename) {
			respondError(c, http.StatusBadRequest, "Invalid file name")
			return
		}
		logger.Error.Printf("avatar upload: %v", err)
		respondError(c, http.StatusInternalServerError, "Problem to update user avatar")
		return
	}

	err = h.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		if err := h.cleaner.ImageReplaced(tx, user.AvatarURL, avatarURL); err != nil {
			return err
		}
		return tx.Model(&user).Update("avatar_url", avatarURL).Error
	})
	if err != nil {
		respondServiceError(c, err, "Problem to update user avatar")
		return
	}
	h.cleaner.Notify()

	c.JSON(http.StatusOK, gin.H{"avatarUrl": avatarURL})
}
