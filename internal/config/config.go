package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	Email    EmailConfig
	Server   ServerConfig
	Uploads  UploadsConfig
	Cache    CacheConfig
	Cleanup  CleanupConfig
	// 모더레이터 권한을 가진 이메일 목록
	Moderators []string
}

type DatabaseConfig struct {
	Primary  DBConnection
	Fallback DBConnection
	LogLevel string
	// 시작 시 postsCount / commentsCount 재계산
	ReconcileCounters bool
}

type DBConnection struct {
	Driver string
	DSN    string
	Enable bool
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != "" && e.FromEmail != "" && e.SMTPPassword != ""
}

type ServerConfig struct {
	Port        string
	BaseURL     string
	CORSOrigins []string
}

type UploadsConfig struct {
	Dir string
}

type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	TTL           time.Duration
}

type CleanupConfig struct {
	Interval    time.Duration
	MaxAttempts int
	RetryBase   time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		logger.Warn.Println("환경 변수 파일(.env) 로드 실패:", err)
	}

	return &Config{
		Database: DatabaseConfig{
			Primary:           loadPrimaryDB(),
			Fallback:          loadFallbackDB(),
			LogLevel:          getEnvOrDefault("DB_LOG_LEVEL", "warn"),
			ReconcileCounters: getEnvOrDefault("RECONCILE_COUNTERS", "false") == "true",
		},
		JWT: JWTConfig{
			Secret: getEnvOrDefault("JWT_SECRET", "default_secret_key"),
			TTL:    getDurationOrDefault("JWT_TTL", 30*24*time.Hour),
		},
		Email: EmailConfig{
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getEnvOrDefault("SMTP_PORT", "587"),
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			FromEmail:    os.Getenv("FROM_EMAIL"),
			FromName:     getEnvOrDefault("FROM_NAME", "Blog"),
		},
		Server: ServerConfig{
			Port:        getEnvOrDefault("PORT", "4444"),
			BaseURL:     getEnvOrDefault("BASE_URL", "http://localhost:4444"),
			CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
		},
		Uploads: UploadsConfig{
			Dir: getEnvOrDefault("UPLOADS_DIR", "./uploads"),
		},
		Cache: CacheConfig{
			RedisAddr:     os.Getenv("REDIS_ADDR"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			TTL:           getDurationOrDefault("CACHE_TTL", 30*time.Second),
		},
		Cleanup: CleanupConfig{
			Interval:    getDurationOrDefault("CLEANUP_INTERVAL", 30*time.Second),
			MaxAttempts: getIntOrDefault("CLEANUP_MAX_ATTEMPTS", 5),
			RetryBase:   getDurationOrDefault("CLEANUP_RETRY_BASE", 5*time.Second),
		},
		Moderators: splitList(os.Getenv("MODERATOR_EMAILS")),
	}
}

func loadPrimaryDB() DBConnection {
	driver := getEnvOrDefault("PRIMARY_DB_DRIVER", "mysql")
	enable := getEnvOrDefault("PRIMARY_DB_ENABLE", "true") == "true"

	var dsn string
	switch driver {
	case "mysql":
		dsn = buildMySQLDSN("PRIMARY_DB_DSN", "MYSQL_")
	case "sqlite":
		dsn = getEnvOrDefault("PRIMARY_SQLITE_PATH", "./data/primary.db")
	default:
		logger.Warn.Printf("지원하지 않는 주 데이터베이스 드라이버: %s", driver)
		enable = false
	}

	return DBConnection{
		Driver: driver,
		DSN:    dsn,
		Enable: enable,
	}
}

func loadFallbackDB() DBConnection {
	driver := getEnvOrDefault("FALLBACK_DB_DRIVER", "sqlite")
	enable := getEnvOrDefault("FALLBACK_DB_ENABLE", "true") == "true"

	var dsn string
	switch driver {
	case "mysql":
		dsn = buildMySQLDSN("FALLBACK_DB_DSN", "FALLBACK_MYSQL_")
	case "sqlite":
		dsn = getEnvOrDefault("FALLBACK_SQLITE_PATH", "./data/fallback.db")
	default:
		// 기본 SQLite fallback
		driver = "sqlite"
		dsn = "./data/fallback.db"
	}

	return DBConnection{
		Driver: driver,
		DSN:    dsn,
		Enable: enable,
	}
}

// buildMySQLDSN prefers a full DSN from dsnKey, otherwise assembles one
// from the prefixed HOST/PORT/USERNAME/PASSWORD/DATABASE variables.
func buildMySQLDSN(dsnKey, prefix string) string {
	if dsn := os.Getenv(dsnKey); dsn != "" {
		return dsn
	}

	host := getEnvOrDefault(prefix+"HOST", "localhost")
	port := getEnvOrDefault(prefix+"PORT", "3306")
	username := os.Getenv(prefix + "USERNAME")
	password := os.Getenv(prefix + "PASSWORD")
	database := os.Getenv(prefix + "DATABASE")
	charset := getEnvOrDefault(prefix+"CHARSET", "utf8mb4")

	if username == "" || password == "" || database == "" {
		return ""
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
		username, password, host, port, database, charset)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn.Printf("%s 값이 잘못되었습니다 (%q), 기본값 %s 사용", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn.Printf("%s 값이 잘못되었습니다 (%q), 기본값 %d 사용", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
