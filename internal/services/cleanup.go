package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Kiril-Hr/blog-source-back/internal/config"
	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/Kiril-Hr/blog-source-back/internal/models"

	"gorm.io/gorm"
)

// FileStore is the part of the upload storage the cleaner needs.
type FileStore interface {
	ResolveURL(url string) (string, bool)
	ModTime(path string) (time.Time, error)
	Remove(path string) error
}

// Cleaner removes uploaded files that are no longer referenced. Callers
// record an intent row inside their own transaction and the worker deletes
// the file later, retrying with exponential backoff.
type Cleaner struct {
	db          *gorm.DB
	files       FileStore
	interval    time.Duration
	maxAttempts int
	retryBase   time.Duration
	batchSize   int
	now         func() time.Time
	wake        chan struct{}
}

func NewCleaner(db *gorm.DB, files FileStore, cfg config.CleanupConfig) *Cleaner {
	c := &Cleaner{
		db:          db,
		files:       files,
		interval:    cfg.Interval,
		maxAttempts: cfg.MaxAttempts,
		retryBase:   cfg.RetryBase,
		batchSize:   100,
		now:         time.Now,
		wake:        make(chan struct{}, 1),
	}
	if c.interval <= 0 {
		c.interval = 30 * time.Second
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 5
	}
	if c.retryBase <= 0 {
		c.retryBase = 5 * time.Second
	}
	return c
}

// Enqueue records that the file behind url must be deleted. Empty URLs and
// URLs outside the uploads root are skipped.
func (c *Cleaner) Enqueue(tx *gorm.DB, url string) error {
	if url == "" {
		return nil
	}
	p, ok := c.files.ResolveURL(url)
	if !ok {
		logger.Warn.Printf("업로드 경로가 아닌 이미지 URL, 정리 생략: %q", url)
		return nil
	}
	job := models.FileCleanup{
		URL:           url,
		Path:          p,
		NextAttemptAt: c.now(),
	}
	if err := tx.Create(&job).Error; err != nil {
		return fmt.Errorf("enqueue file cleanup: %w", err)
	}
	return nil
}

// EnqueueUnused is Enqueue for files nothing points at. It returns
// ErrFileInUse when a post image or an avatar still uses url.
func (c *Cleaner) EnqueueUnused(tx *gorm.DB, url string) error {
	used, err := inUse(tx, url)
	if err != nil {
		return err
	}
	if used {
		return ErrFileInUse
	}
	return c.Enqueue(tx, url)
}

// ImageReplaced enqueues oldURL when it is set and no longer in use.
func (c *Cleaner) ImageReplaced(tx *gorm.DB, oldURL, newURL string) error {
	if oldURL == "" || oldURL == newURL {
		return nil
	}
	return c.Enqueue(tx, oldURL)
}

// Notify wakes the worker. It never blocks.
func (c *Cleaner) Notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	logger.Info.Printf("파일 정리 워커 시작 (interval=%s)", c.interval)
	for {
		if _, err := c.RunOnce(ctx); err != nil {
			logger.Error.Printf("파일 정리 실패: %v", err)
		}
		select {
		case <-ctx.Done():
			logger.Info.Println("파일 정리 워커 종료")
			return
		case <-ticker.C:
		case <-c.wake:
		}
	}
}

// RunOnce processes every due job once and returns how many it handled.
func (c *Cleaner) RunOnce(ctx context.Context) (int, error) {
	var jobs []models.FileCleanup
	err := c.db.WithContext(ctx).
		Where("done_at IS NULL AND failed_at IS NULL AND next_attempt_at <= ?", c.now()).
		Order("id").
		Limit(c.batchSize).
		Find(&jobs).Error
	if err != nil {
		return 0, fmt.Errorf("load cleanup jobs: %w", err)
	}

	for i := range jobs {
		if err := c.process(ctx, &jobs[i]); err != nil {
			return i, err
		}
	}
	return len(jobs), nil
}

func (c *Cleaner) process(ctx context.Context, job *models.FileCleanup) error {
	now := c.now()
	updates := map[string]interface{}{}

	skip, err := c.stale(ctx, job)
	if err != nil {
		return err
	}

	if skip {
		updates["done_at"] = now
	} else if err := c.files.Remove(job.Path); err != nil {
		job.Attempts++
		updates["attempts"] = job.Attempts
		updates["last_error"] = err.Error()
		if job.Attempts >= c.maxAttempts {
			updates["failed_at"] = now
			logger.Error.Printf("파일 삭제 포기 %s (%d회 시도): %v", job.Path, job.Attempts, err)
		} else {
			updates["next_attempt_at"] = now.Add(c.backoff(job.Attempts))
			logger.Warn.Printf("파일 삭제 실패 %s (%d회), 재시도 예정: %v", job.Path, job.Attempts, err)
		}
	} else {
		updates["done_at"] = now
		logger.Info.Printf("파일 삭제 완료: %s", job.Path)
	}

	if err := c.db.WithContext(ctx).Model(job).Updates(updates).Error; err != nil {
		return fmt.Errorf("update cleanup job %d: %w", job.ID, err)
	}
	return nil
}

// stale reports whether the file was taken into use again after the job was
// queued. Uploads keep their original name, so the same path can come back.
func (c *Cleaner) stale(ctx context.Context, job *models.FileCleanup) (bool, error) {
	if job.URL != "" {
		used, err := inUse(c.db.WithContext(ctx), job.URL)
		if err != nil {
			return false, err
		}
		if used {
			logger.Info.Printf("다시 사용 중인 파일, 삭제 생략: %s", job.URL)
			return true, nil
		}
	}
	if mod, err := c.files.ModTime(job.Path); err == nil && mod.After(job.CreatedAt) {
		logger.Info.Printf("대기 중에 다시 업로드된 파일, 삭제 생략: %s", job.Path)
		return true, nil
	}
	return false, nil
}

func inUse(tx *gorm.DB, url string) (bool, error) {
	var posts, users int64
	if err := tx.Model(&models.Post{}).Where("image_url = ?", url).Count(&posts).Error; err != nil {
		return false, fmt.Errorf("check post images: %w", err)
	}
	if posts > 0 {
		return true, nil
	}
	if err := tx.Model(&models.User{}).Where("avatar_url = ?", url).Count(&users).Error; err != nil {
		return false, fmt.Errorf("check avatars: %w", err)
	}
	return users > 0, nil
}

func (c *Cleaner) backoff(attempts int) time.Duration {
	d := c.retryBase
	for i := 1; i < attempts; i++ {
		d *= 2
	}
	return d
}
