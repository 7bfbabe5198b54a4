package handlers

import (
	"errors"
	"net/http"

	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/Kiril-Hr/blog-source-back/internal/models"
	"github.com/Kiril-Hr/blog-source-back/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ModerationHandler serves posts that are waiting for, or were sent back
// from, moderator review.
type ModerationHandler struct {
	db    *gorm.DB
	posts *services.PostService
}

func NewModerationHandler(db *gorm.DB, posts *services.PostService) *ModerationHandler {
	return &ModerationHandler{db: db, posts: posts}
}

type reviewRequest struct {
	postRequest
	IsVerifyEdit bool   `json:"isVerifyEdit"`
	Comment      string `json:"comment"`
}

func (h *ModerationHandler) CreateCheck(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	post, err := h.posts.SubmitForReview(c, currentUserID(c), req.input())
	if err != nil {
		respondServiceError(c, err, "Something wrong when create post")
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *ModerationHandler) GetAllCheck(c *gin.Context) {
	posts := []models.Post{}
	if err := h.unpublished(c).Preload("User").Order("created_at ASC").Find(&posts).Error; err != nil {
		logger.Error.Printf("get post checks: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to get posts to check")
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *ModerationHandler) GetOneCheck(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var post models.Post
	if err := h.unpublished(c).Preload("User").First(&post, id).Error; err != nil {
		respondServiceError(c, notFoundPost(err), "Failed to get post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// GetCheckByUser lists a user's unpublished posts. Authors may only list
// their own.
func (h *ModerationHandler) GetCheckByUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if id != currentUserID(c) && !c.GetBool("isModerator") {
		respondError(c, http.StatusForbidden, "No access")
		return
	}

	posts := []models.Post{}
	if err := h.unpublished(c).Where("user_id = ?", id).Order("created_at DESC").Find(&posts).Error; err != nil {
		logger.Error.Printf("get post checks of user %d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "Failed to get user posts")
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *ModerationHandler) UpdateCheck(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	post, err := h.posts.Review(c, id, services.ReviewInput{
		PostInput:    req.input(),
		IsVerifyEdit: req.IsVerifyEdit,
		Comment:      req.Comment,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to update post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": post.Status})
}

func (h *ModerationHandler) RemoveCheck(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.posts.DeleteUnpublished(c, id); err != nil {
		respondServiceError(c, err, "Failed to delete post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ModerationHandler) unpublished(c *gin.Context) *gorm.DB {
	return h.db.WithContext(c).Where("status <> ?", models.StatusPublished)
}

func notFoundPost(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return services.ErrPostNotFound
	}
	return err
}
