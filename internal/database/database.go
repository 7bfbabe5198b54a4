package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/Kiril-Hr/blog-source-back/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Database struct {
	DB     *gorm.DB
	Driver string
}

// Open connects to driver/dsn and migrates every model.
func Open(driver, dsn string, level gormlogger.LogLevel) (*Database, error) {
	var db *gorm.DB
	var err error

	config := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	}

	switch driver {
	case "mysql":
		db, err = initMySQL(dsn, config)
	case "sqlite":
		db, err = initSQLite(dsn, config)
	default:
		return nil, fmt.Errorf("지원하지 않는 데이터베이스 드라이버: %s", driver)
	}
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		// SQLite는 단일 writer만 허용
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("DB 마이그레이션 실패: %w", err)
	}
	logger.Info.Printf("%s 데이터베이스 마이그레이션 완료", driver)

	return &Database{
		DB:     db,
		Driver: driver,
	}, nil
}

// InitWithFallback opens the primary database and, if that fails, the
// fallback one. It exits the process when neither can be opened.
func InitWithFallback(primaryDriver, primaryDSN, fallbackDriver, fallbackDSN string, level gormlogger.LogLevel) *Database {
	db, err := Open(primaryDriver, primaryDSN, level)
	if err == nil {
		return db
	}
	logger.Warn.Printf("주 데이터베이스 연결 실패 (%s): %v", primaryDriver, err)

	if fallbackDriver == "" {
		logger.Error.Fatalf("데이터베이스 연결 실패, fallback 설정 없음")
	}

	logger.Info.Printf("Fallback 데이터베이스로 전환: %s", fallbackDriver)
	db, err = Open(fallbackDriver, fallbackDSN, level)
	if err != nil {
		logger.Error.Fatalf("Fallback 데이터베이스 연결 실패 (%s): %v", fallbackDriver, err)
	}
	return db
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}, &models.FileCleanup{})
}

// ParseLogLevel maps a config string onto a GORM log level.
func ParseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func initMySQL(dsn string, config *gorm.Config) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("MySQL DSN이 설정되지 않았습니다")
	}

	logger.Info.Println("MySQL 데이터베이스에 연결 중...")
	db, err := gorm.Open(mysql.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("MySQL 연결 실패: %w", err)
	}

	logger.Info.Println("MySQL 데이터베이스 연결 성공")
	return db, nil
}

func initSQLite(dsn string, config *gorm.Config) (*gorm.DB, error) {
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("SQLite 디렉토리 생성 실패: %w", err)
		}
	}

	logger.Info.Printf("SQLite 데이터베이스에 연결 중: %s", dsn)
	db, err := gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("SQLite 연결 실패: %w", err)
	}

	logger.Info.Printf("SQLite 데이터베이스 연결 성공: %s", dsn)
	return db, nil
}

func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetInfo summarizes the active connection for the startup log.
func (d *Database) GetInfo() map[string]interface{} {
	info := map[string]interface{}{
		"driver": d.Driver,
	}
	if sqlDB, err := d.DB.DB(); err == nil {
		stats := sqlDB.Stats()
		info["open_connections"] = stats.OpenConnections
		info["max_open_connections"] = stats.MaxOpenConnections
	}
	return info
}
