package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Kiril-Hr/blog-source-back/internal/cache"
	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/Kiril-Hr/blog-source-back/internal/models"
	"github.com/Kiril-Hr/blog-source-back/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	popularLimit  = 15
	tagsPostLimit = 15
	tagsLimit     = 30
	defaultLimit  = 10
)

type PostHandler struct {
	db       *gorm.DB
	posts    *services.PostService
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewPostHandler(db *gorm.DB, posts *services.PostService, c cache.Cache, cacheTTL time.Duration) *PostHandler {
	return &PostHandler{db: db, posts: posts, cache: c, cacheTTL: cacheTTL}
}

type postRequest struct {
	Title    string   `json:"title" binding:"required,min=3"`
	Text     string   `json:"text" binding:"required,min=3"`
	Tags     []string `json:"tags"`
	ImageURL string   `json:"imageUrl"`
}

func (r postRequest) input() services.PostInput {
	return services.PostInput{
		Title:    r.Title,
		Text:     r.Text,
		ImageURL: r.ImageURL,
		Tags:     r.Tags,
	}
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	post, err := h.posts.Create(c, currentUserID(c), req.input())
	if err != nil {
		respondServiceError(c, err, "Failed to create post")
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) GetAll(c *gin.Context) {
	posts := []models.Post{}
	if err := h.published(c).Preload("User").Order("created_at DESC, id DESC").Find(&posts).Error; err != nil {
		logger.Error.Printf("get posts: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to get posts")
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetPortion pages through published posts. hasMore only says the page was
// full, not that another page exists.
func (h *PostHandler) GetPortion(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}

	posts := []models.Post{}
	if err := h.published(c).
		Preload("User").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&posts).Error; err != nil {
		logger.Error.Printf("get posts portion: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to get posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"informData": gin.H{
			"currentPage": page,
			"hasMore":     len(posts) == limit,
		},
	})
}

func (h *PostHandler) GetPopular(c *gin.Context) {
	posts := []models.Post{}
	if h.cached(c, cache.KeyPopularPosts, &posts) {
		c.JSON(http.StatusOK, posts)
		return
	}

	if err := h.published(c).
		Preload("User").
		Order("views_count DESC, created_at ASC").
		Limit(popularLimit).
		Find(&posts).Error; err != nil {
		logger.Error.Printf("get popular posts: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to get posts")
		return
	}

	h.store(c, cache.KeyPopularPosts, posts)
	c.JSON(http.StatusOK, posts)
}

// GetOne returns a post and counts the view.
func (h *PostHandler) GetOne(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	post, err := h.posts.View(c, id)
	if err != nil {
		respondServiceError(c, err, "Failed to get post")
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) GetByUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	posts := []models.Post{}
	if err := h.published(c).Where("user_id = ?", id).Order("created_at DESC").Find(&posts).Error; err != nil {
		logger.Error.Printf("get posts of user %d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "Failed to get user posts")
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetLastTags flattens the tags of the most recent posts. Duplicates are kept.
func (h *PostHandler) GetLastTags(c *gin.Context) {
	tags := []string{}
	if h.cached(c, cache.KeyLastTags, &tags) {
		c.JSON(http.StatusOK, tags)
		return
	}

	var posts []models.Post
	if err := h.published(c).Select("id", "tags").Order("created_at DESC, id DESC").Limit(tagsPostLimit).Find(&posts).Error; err != nil {
		logger.Error.Printf("get tags: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to get tags")
		return
	}

	tags = lastTags(posts, tagsLimit)
	h.store(c, cache.KeyLastTags, tags)
	c.JSON(http.StatusOK, tags)
}

func (h *PostHandler) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.posts.Update(c, id, currentUserID(c), req.input()); err != nil {
		respondServiceError(c, err, "Failed to update post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PostHandler) Remove(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	ownerID, ok := uintParam(c, "userId")
	if !ok {
		return
	}

	if err := h.posts.Delete(c, id, ownerID, currentUserID(c)); err != nil {
		respondServiceError(c, err, "Failed to delete post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PostHandler) published(c *gin.Context) *gorm.DB {
	return h.db.WithContext(c).Where("status = ?", models.StatusPublished)
}

func (h *PostHandler) cached(c *gin.Context, key string, dst interface{}) bool {
	hit, err := h.cache.GetJSON(c, key, dst)
	if err != nil {
		logger.Warn.Printf("캐시 조회 실패 %s: %v", key, err)
		return false
	}
	return hit
}

func (h *PostHandler) store(c *gin.Context, key string, v interface{}) {
	if err := h.cache.SetJSON(c, key, v, h.cacheTTL); err != nil {
		logger.Warn.Printf("캐시 저장 실패 %s: %v", key, err)
	}
}

func lastTags(posts []models.Post, limit int) []string {
	tags := []string{}
	for _, p := range posts {
		for _, t := range p.Tags {
			if len(tags) == limit {
				return tags
			}
			tags = append(tags, t)
		}
	}
	return tags
}
