package services

import (
	"context"
	"fmt"

	"github.com/Kiril-Hr/blog-source-back/internal/cache"
	"github.com/Kiril-Hr/blog-source-back/internal/models"

	"gorm.io/gorm"
)

type CommentService struct {
	db       *gorm.DB
	counters *Counters
	cache    cache.Cache
}

func NewCommentService(db *gorm.DB, counters *Counters, c cache.Cache) *CommentService {
	return &CommentService{db: db, counters: counters, cache: c}
}

// Create adds a comment to a published post and bumps its comments count.
func (s *CommentService) Create(ctx context.Context, userID, postID uint, text string) (*models.Comment, error) {
	comment := models.Comment{
		PostID: postID,
		Text:   text,
		UserID: userID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").Where("id = ? AND status = ?", postID, models.StatusPublished).First(&post).Error; err != nil {
			return notFound(err, ErrPostNotFound)
		}
		if err := tx.Create(&comment).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return s.counters.CommentCreated(tx, postID)
	})
	if err != nil {
		return nil, err
	}
	dropCache(ctx, s.cache, cache.KeyPopularPosts)

	var created models.Comment
	if err := s.db.WithContext(ctx).Preload("User").First(&created, comment.ID).Error; err != nil {
		return nil, notFound(err, ErrCommentNotFound)
	}
	return &created, nil
}

// Delete removes comment id from post postID. Only the comment author or
// the post owner may delete it.
func (s *CommentService) Delete(ctx context.Context, id, postID, callerID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Where("id = ? AND post_id = ?", id, postID).First(&comment).Error; err != nil {
			return notFound(err, ErrCommentNotFound)
		}

		if comment.UserID != callerID {
			var post models.Post
			if err := tx.Select("id", "user_id").First(&post, comment.PostID).Error; err != nil {
				return notFound(err, ErrPostNotFound)
			}
			if post.UserID != callerID {
				return ErrForbidden
			}
		}

		if err := tx.Delete(&comment).Error; err != nil {
			return fmt.Errorf("delete comment %d: %w", comment.ID, err)
		}
		return s.counters.CommentDeleted(tx, comment.PostID)
	})
	if err != nil {
		return err
	}

	dropCache(ctx, s.cache, cache.KeyPopularPosts)
	return nil
}
