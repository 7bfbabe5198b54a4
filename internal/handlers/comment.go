package handlers

import (
	"net/http"

	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/Kiril-Hr/blog-source-back/internal/models"
	"github.com/Kiril-Hr/blog-source-back/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CommentHandler struct {
	db       *gorm.DB
	comments *services.CommentService
}

func NewCommentHandler(db *gorm.DB, comments *services.CommentService) *CommentHandler {
	return &CommentHandler{db: db, comments: comments}
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req struct {
		PostID uint   `json:"postId" binding:"required"`
		Text   string `json:"text" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	comment, err := h.comments.Create(c, currentUserID(c), req.PostID, req.Text)
	if err != nil {
		respondServiceError(c, err, "Failed to create comment")
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) GetAll(c *gin.Context) {
	comments := []models.Comment{}
	if err := h.db.WithContext(c).Preload("User").Order("created_at ASC, id ASC").Find(&comments).Error; err != nil {
		logger.Error.Printf("get comments: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to get comments")
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *CommentHandler) GetByPostID(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	comments := []models.Comment{}
	if err := h.db.WithContext(c).
		Preload("User").
		Where("post_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		logger.Error.Printf("get comments of post %d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "Failed to get comments")
		return
	}
	c.JSON(http.StatusOK, comments)
}

// GroupByPost returns the number of comments per post, ordered by post id.
func (h *CommentHandler) GroupByPost(c *gin.Context) {
	groups := []models.CommentGroup{}
	if err := h.db.WithContext(c).
		Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS count").
		Group("post_id").
		Order("post_id").
		Scan(&groups).Error; err != nil {
		logger.Error.Printf("group comments: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to get comments")
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *CommentHandler) Remove(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}

	if err := h.comments.Delete(c, id, postID, currentUserID(c)); err != nil {
		respondServiceError(c, err, "Failed to delete comment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
