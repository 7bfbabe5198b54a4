package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kiril-Hr/blog-source-back/internal/cache"
	"github.com/Kiril-Hr/blog-source-back/internal/config"
	"github.com/Kiril-Hr/blog-source-back/internal/database"
	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/Kiril-Hr/blog-source-back/internal/routes"
	"github.com/Kiril-Hr/blog-source-back/internal/services"
	"github.com/Kiril-Hr/blog-source-back/internal/storage"
)

func main() {
	cfg := config.Load()
	level := database.ParseLogLevel(cfg.Database.LogLevel)

	// Fallback 로직으로 데이터베이스 초기화
	var db *database.Database

	if cfg.Database.Primary.Enable {
		// Primary + Fallback 모드
		fallbackDriver, fallbackDSN := "", ""
		if cfg.Database.Fallback.Enable {
			fallbackDriver, fallbackDSN = cfg.Database.Fallback.Driver, cfg.Database.Fallback.DSN
		}
		db = database.InitWithFallback(
			cfg.Database.Primary.Driver,
			cfg.Database.Primary.DSN,
			fallbackDriver,
			fallbackDSN,
			level,
		)
	} else if cfg.Database.Fallback.Enable {
		// Fallback만 사용
		db = database.InitWithFallback(
			cfg.Database.Fallback.Driver,
			cfg.Database.Fallback.DSN,
			"", "",
			level,
		)
	} else {
		// 응급 모드 (메모리 SQLite)
		logger.Warn.Println("⚠️  모든 DB 설정이 비활성화됨. 응급 모드로 실행합니다.")
		db = database.InitWithFallback("sqlite", ":memory:", "", "", level)
	}

	defer func() {
		if err := db.Close(); err != nil {
			logger.Error.Printf("데이터베이스 연결 종료 실패: %v", err)
		}
	}()

	logger.Info.Printf("📊 데이터베이스 정보: %+v", db.GetInfo())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.ReconcileCounters {
		if err := services.NewCounters().Reconcile(ctx, db.DB); err != nil {
			logger.Error.Printf("카운터 재계산 실패: %v", err)
		} else {
			logger.Info.Println("카운터 재계산 완료")
		}
	}

	readCache := cache.NewNoop()
	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword)
		if err != nil {
			logger.Warn.Printf("Redis 연결 실패, 캐시 없이 실행합니다: %v", err)
		} else {
			readCache = rc
			logger.Info.Printf("Redis 캐시 사용: %s", cfg.Cache.RedisAddr)
		}
	}
	defer readCache.Close()

	store := storage.New(cfg.Uploads.Dir)
	cleaner := services.NewCleaner(db.DB, store, cfg.Cleanup)
	cleanerDone := make(chan struct{})
	go func() {
		defer close(cleanerDone)
		cleaner.Run(ctx)
	}()

	router := routes.SetupRoutes(routes.Deps{
		DB:       db.DB,
		Config:   cfg,
		Store:    store,
		Cleaner:  cleaner,
		Cache:    readCache,
		Notifier: services.NewEmailService(cfg),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info.Printf("🚀 서버가 포트 %s에서 시작되었습니다", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error.Fatalf("서버 시작 실패: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info.Println("서버 종료 중...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error.Printf("서버 종료 실패: %v", err)
	}

	// DB는 정리 워커가 끝난 뒤에 닫는다
	select {
	case <-cleanerDone:
	case <-shutdownCtx.Done():
		logger.Warn.Println("파일 정리 워커 종료 대기 시간 초과")
	}
}
