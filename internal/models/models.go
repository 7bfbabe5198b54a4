package models

import (
	"time"

	"gorm.io/gorm"
)

// User 모델
type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	FullName        string    `gorm:"size:100;not null" json:"fullName"`
	Email           string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash    string    `gorm:"size:255;not null" json:"-"` // JSON 출력에서 제외
	PostsCount      int       `gorm:"default:0;not null" json:"postsCount"`
	TotalViewsCount int       `gorm:"default:0;not null" json:"totalViewsCount"`
	AvatarURL       string    `gorm:"size:512" json:"avatarUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// PostStatus is the moderation state of a post. Only published posts are
// visible in public listings and counted in User.PostsCount.
type PostStatus string

const (
	StatusDraft         PostStatus = "draft"
	StatusPendingReview PostStatus = "pending_review"
	StatusPublished     PostStatus = "published"
)

// Post 모델
type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Text          string     `gorm:"type:text;not null" json:"text"`
	ImageURL      string     `gorm:"size:512" json:"imageUrl,omitempty"`
	Tags          []string   `gorm:"serializer:json;type:text" json:"tags"`
	UserID        uint       `gorm:"index;not null" json:"userId"`
	User          *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ViewsCount    int        `gorm:"default:0;not null" json:"viewsCount"`
	CommentsCount int        `gorm:"default:0;not null" json:"commentsCount"`
	Status        PostStatus `gorm:"size:20;index;not null;default:published" json:"status"`
	// 모더레이션 필드
	IsVerifyEdit bool      `gorm:"default:false" json:"isVerifyEdit"`
	Comment      string    `gorm:"type:text" json:"comment"`
	// TextHash is set for posts that went through moderation and keeps
	// their text unique at the database level.
	TextHash     *string   `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AfterFind keeps Tags a JSON array instead of null.
func (p *Post) AfterFind(tx *gorm.DB) error {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return nil
}

// Comment 모델
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"postId"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FileCleanup is a pending removal of an uploaded file. Rows are written in
// the same transaction as the document change and drained by the cleanup
// worker.
type FileCleanup struct {
	ID            uint       `gorm:"primaryKey"`
	URL           string     `gorm:"size:1024;index"`
	Path          string     `gorm:"size:1024;not null"`
	Attempts      int        `gorm:"default:0;not null"`
	LastError     string     `gorm:"type:text"`
	NextAttemptAt time.Time  `gorm:"index"`
	DoneAt        *time.Time `gorm:"index"`
	FailedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CommentGroup is one row of the per-post comment count aggregation.
type CommentGroup struct {
	PostID uint  `json:"postId"`
	Count  int64 `json:"count"`
}
