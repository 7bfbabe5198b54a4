package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Kiril-Hr/blog-source-back/internal/cache"
	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/Kiril-Hr/blog-source-back/internal/models"

	"gorm.io/gorm"
)

type PostInput struct {
	Title    string
	Text     string
	ImageURL string
	Tags     []string
}

// ReviewInput is a moderator edit of a post awaiting review.
// IsVerifyEdit publishes the post; otherwise it goes back to draft.
type ReviewInput struct {
	PostInput
	IsVerifyEdit bool
	Comment      string
}

// PostService owns every write to posts so that counter updates and file
// cleanup commit together with the post itself.
type PostService struct {
	db       *gorm.DB
	counters *Counters
	cleaner  *Cleaner
	cache    cache.Cache
	notifier ReviewNotifier
}

func NewPostService(db *gorm.DB, counters *Counters, cleaner *Cleaner, c cache.Cache, notifier ReviewNotifier) *PostService {
	return &PostService{
		db:       db,
		counters: counters,
		cleaner:  cleaner,
		cache:    c,
		notifier: notifier,
	}
}

// Create publishes a new post and bumps the owner's posts count.
func (s *PostService) Create(ctx context.Context, userID uint, in PostInput) (*models.Post, error) {
	post := newPost(userID, in, models.StatusPublished)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		return s.counters.PostCreated(tx, userID)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return s.load(ctx, post.ID)
}

// View returns a published post and counts the view on the post and its
// owner. Every call counts.
func (s *PostService) View(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found models.Post
		if err := tx.Where("id = ? AND status = ?", id, models.StatusPublished).First(&found).Error; err != nil {
			return notFound(err, ErrPostNotFound)
		}
		if err := s.counters.PostViewed(tx, found.ID, found.UserID); err != nil {
			return err
		}
		return tx.Preload("User").First(&post, found.ID).Error
	})
	if err != nil {
		return nil, err
	}

	// the popular list is ranked by views
	dropCache(ctx, s.cache, cache.KeyPopularPosts)
	return &post, nil
}

// Update edits a published post owned by callerID. A replaced image is
// queued for deletion.
func (s *PostService) Update(ctx context.Context, id, callerID uint, in PostInput) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Where("id = ? AND status = ?", id, models.StatusPublished).First(&post).Error; err != nil {
			return notFound(err, ErrPostNotFound)
		}
		if post.UserID != callerID {
			return ErrForbidden
		}
		if err := s.cleaner.ImageReplaced(tx, post.ImageURL, in.ImageURL); err != nil {
			return err
		}
		return tx.Model(&post).
			Select("Title", "Text", "ImageURL", "Tags").
			Updates(models.Post{Title: in.Title, Text: in.Text, ImageURL: in.ImageURL, Tags: normalizeTags(in.Tags)}).Error
	})
	if err != nil {
		return err
	}

	s.cleaner.Notify()
	s.invalidate(ctx)
	return nil
}

// Delete removes a published post together with its comments, queues its
// image for deletion and decrements the owner's posts count. ownerID is the
// owner named by the client and must match the stored one.
func (s *PostService) Delete(ctx context.Context, id, ownerID, callerID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Where("id = ? AND status = ?", id, models.StatusPublished).First(&post).Error; err != nil {
			return notFound(err, ErrPostNotFound)
		}
		if post.UserID != callerID {
			return ErrForbidden
		}
		if post.UserID != ownerID {
			return ErrOwnerMismatch
		}
		if err := s.remove(tx, &post); err != nil {
			return err
		}
		return s.counters.PostDeleted(tx, post.UserID)
	})
	if err != nil {
		return err
	}

	s.cleaner.Notify()
	s.invalidate(ctx)
	return nil
}

// SubmitForReview stores a post awaiting moderation. Its text must not
// match any existing post.
func (s *PostService) SubmitForReview(ctx context.Context, userID uint, in PostInput) (*models.Post, error) {
	post := newPost(userID, in, models.StatusPendingReview)
	post.TextHash = textHash(in.Text)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUniqueText(tx, in.Text, 0); err != nil {
			return err
		}
		if err := tx.Create(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateText
			}
			return fmt.Errorf("create post check: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, post.ID)
}

// Review applies a moderator edit to an unpublished post. Approving it
// publishes the post and counts it for the author.
func (s *PostService) Review(ctx context.Context, id uint, in ReviewInput) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND status <> ?", id, models.StatusPublished).First(&post).Error; err != nil {
			return notFound(err, ErrPostNotFound)
		}
		if err := ensureUniqueText(tx, in.Text, post.ID); err != nil {
			return err
		}
		if err := s.cleaner.ImageReplaced(tx, post.ImageURL, in.ImageURL); err != nil {
			return err
		}

		status := models.StatusDraft
		if in.IsVerifyEdit {
			status = models.StatusPublished
		}
		err := tx.Model(&post).
			Select("Title", "Text", "ImageURL", "Tags", "IsVerifyEdit", "Comment", "Status", "TextHash").
			Updates(models.Post{
				Title:        in.Title,
				Text:         in.Text,
				ImageURL:     in.ImageURL,
				Tags:         normalizeTags(in.Tags),
				IsVerifyEdit: in.IsVerifyEdit,
				Comment:      in.Comment,
				Status:       status,
				TextHash:     textHash(in.Text),
			}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateText
		}
		if err != nil {
			return fmt.Errorf("review post: %w", err)
		}
		if status == models.StatusPublished {
			return s.counters.PostCreated(tx, post.UserID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cleaner.Notify()
	if in.IsVerifyEdit {
		s.invalidate(ctx)
	}

	reviewed, err := s.load(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil && reviewed.User != nil {
		if err := s.notifier.NotifyReview(*reviewed.User, *reviewed); err != nil {
			logger.Warn.Printf("검토 알림 발송 실패 post %d: %v", reviewed.ID, err)
		}
	}
	return reviewed, nil
}

// DeleteUnpublished removes a post that has not been published yet.
func (s *PostService) DeleteUnpublished(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Where("id = ? AND status <> ?", id, models.StatusPublished).First(&post).Error; err != nil {
			return notFound(err, ErrPostNotFound)
		}
		return s.remove(tx, &post)
	})
	if err != nil {
		return err
	}

	s.cleaner.Notify()
	return nil
}

// remove deletes post and its comments and queues its image.
func (s *PostService) remove(tx *gorm.DB, post *models.Post) error {
	if err := s.cleaner.Enqueue(tx, post.ImageURL); err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
		return fmt.Errorf("delete comments of post %d: %w", post.ID, err)
	}
	if err := tx.Delete(post).Error; err != nil {
		return fmt.Errorf("delete post %d: %w", post.ID, err)
	}
	return nil
}

func (s *PostService) load(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		return nil, notFound(err, ErrPostNotFound)
	}
	return &post, nil
}

func (s *PostService) invalidate(ctx context.Context) {
	dropCache(ctx, s.cache, cache.KeyPopularPosts, cache.KeyLastTags)
}

func dropCache(ctx context.Context, c cache.Cache, keys ...string) {
	if err := c.Delete(ctx, keys...); err != nil {
		logger.Warn.Printf("캐시 무효화 실패 %v: %v", keys, err)
	}
}

func ensureUniqueText(tx *gorm.DB, text string, exceptID uint) error {
	var count int64
	q := tx.Model(&models.Post{}).Where("text = ?", text)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("check post text: %w", err)
	}
	if count > 0 {
		return ErrDuplicateText
	}
	return nil
}

func textHash(text string) *string {
	sum := sha256.Sum256([]byte(text))
	h := hex.EncodeToString(sum[:])
	return &h
}

func newPost(userID uint, in PostInput, status models.PostStatus) models.Post {
	return models.Post{
		Title:    in.Title,
		Text:     in.Text,
		ImageURL: in.ImageURL,
		Tags:     normalizeTags(in.Tags),
		UserID:   userID,
		Status:   status,
	}
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// notFound converts gorm's not-found error into the given sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
