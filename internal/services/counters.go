package services

import (
	"context"
	"fmt"

	"github.com/Kiril-Hr/blog-source-back/internal/models"

	"gorm.io/gorm"
)

// Counters keeps the denormalized aggregates on users and posts in step
// with the rows they summarize. Every method expects tx to be the
// transaction that performs the matching entity write.
type Counters struct{}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) PostCreated(tx *gorm.DB, userID uint) error {
	return incr(tx, &models.User{}, userID, "posts_count", 1)
}

func (c *Counters) PostDeleted(tx *gorm.DB, userID uint) error {
	return incr(tx, &models.User{}, userID, "posts_count", -1)
}

func (c *Counters) PostViewed(tx *gorm.DB, postID, ownerID uint) error {
	if err := incr(tx, &models.Post{}, postID, "views_count", 1); err != nil {
		return err
	}
	return incr(tx, &models.User{}, ownerID, "total_views_count", 1)
}

func (c *Counters) CommentCreated(tx *gorm.DB, postID uint) error {
	return incr(tx, &models.Post{}, postID, "comments_count", 1)
}

func (c *Counters) CommentDeleted(tx *gorm.DB, postID uint) error {
	return incr(tx, &models.Post{}, postID, "comments_count", -1)
}

// incr applies an atomic column += delta. A missing row is an error so a
// counter update can never silently target nothing.
func incr(tx *gorm.DB, model interface{}, id uint, column string, delta int) error {
	res := tx.Model(model).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("update %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update %s for id %d: %w", column, id, gorm.ErrRecordNotFound)
	}
	return nil
}

// Reconcile recomputes posts_count and comments_count from the underlying
// rows. total_views_count is not derivable and is left as is.
func (c *Counters) Reconcile(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		postsCount := tx.Model(&models.Post{}).
			Select("COUNT(*)").
			Where("posts.user_id = users.id AND posts.status = ?", models.StatusPublished)
		if err := tx.Model(&models.User{}).
			Where("1 = 1").
			UpdateColumn("posts_count", postsCount).Error; err != nil {
			return fmt.Errorf("reconcile posts_count: %w", err)
		}

		commentsCount := tx.Model(&models.Comment{}).
			Select("COUNT(*)").
			Where("comments.post_id = posts.id")
		if err := tx.Model(&models.Post{}).
			Where("1 = 1").
			UpdateColumn("comments_count", commentsCount).Error; err != nil {
			return fmt.Errorf("reconcile comments_count: %w", err)
		}
		return nil
	})
}
