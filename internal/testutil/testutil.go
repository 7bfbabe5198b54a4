// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/Kiril-Hr/blog-source-back/internal/database"
	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/Kiril-Hr/blog-source-back/internal/models"
	"github.com/Kiril-Hr/blog-source-back/pkg/utils"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a migrated SQLite database in a temporary directory.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	logger.SetOutput(io.Discard)

	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "test.db"), gormlogger.Silent)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db.DB
}

// CreateUser inserts a user whose password is "secret".
func CreateUser(t testing.TB, db *gorm.DB, email string) models.User {
	t.Helper()
	hash, err := utils.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{FullName: "Test User", Email: email, PasswordHash: hash}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// Reload refreshes dst from the database by primary key.
func Reload(t testing.TB, db *gorm.DB, dst interface{}, id uint) {
	t.Helper()
	if err := db.First(dst, id).Error; err != nil {
		t.Fatalf("reload %T %d: %v", dst, id, err)
	}
}
