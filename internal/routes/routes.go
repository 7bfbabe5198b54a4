package routes

import (
	"github.com/Kiril-Hr/blog-source-back/internal/cache"
	"github.com/Kiril-Hr/blog-source-back/internal/config"
	"github.com/Kiril-Hr/blog-source-back/internal/handlers"
	"github.com/Kiril-Hr/blog-source-back/internal/middleware"
	"github.com/Kiril-Hr/blog-source-back/internal/services"
	"github.com/Kiril-Hr/blog-source-back/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the long-lived collaborators the router wires into handlers.
type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Store    *storage.Store
	Cleaner  *services.Cleaner
	Cache    cache.Cache
	Notifier services.ReviewNotifier
}

func SetupRoutes(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.RequestID())
	r.Use(cors.New(corsConfig(d.Config.Server.CORSOrigins)))

	// 서비스 초기화
	tokenService := services.NewTokenService(d.Config)
	counters := services.NewCounters()
	postService := services.NewPostService(d.DB, counters, d.Cleaner, d.Cache, d.Notifier)
	commentService := services.NewCommentService(d.DB, counters, d.Cache)

	// 핸들러 초기화
	authHandler := handlers.NewAuthHandler(d.DB, tokenService)
	userHandler := handlers.NewUserHandler(d.DB, d.Store, d.Cleaner)
	uploadHandler := handlers.NewUploadHandler(d.DB, d.Store, d.Cleaner)
	postHandler := handlers.NewPostHandler(d.DB, postService, d.Cache, d.Config.Cache.TTL)
	moderationHandler := handlers.NewModerationHandler(d.DB, postService)
	commentHandler := handlers.NewCommentHandler(d.DB, commentService)

	r.Static("/uploads", d.Store.Root())

	// 인증 필요없는 라우트
	r.POST("/auth/login", authHandler.Login)
	r.POST("/auth/register", authHandler.Register)
	r.GET("/user/:id", userHandler.GetOneUser)

	r.GET("/posts", postHandler.GetAll)
	r.GET("/posts/portion", postHandler.GetPortion)
	r.GET("/posts/popular", postHandler.GetPopular)
	r.GET("/posts/:id", postHandler.GetOne)
	r.GET("/posts/user/:id", postHandler.GetByUser)
	r.GET("/tags", postHandler.GetLastTags)

	r.GET("/comments", commentHandler.GetAll)
	r.GET("/comments/groupById", commentHandler.GroupByPost)
	r.GET("/comments/:id", commentHandler.GetByPostID)

	// 인증 필요한 라우트
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(tokenService), middleware.IdentifyModerator(d.DB, d.Config.Moderators))
	{
		auth.GET("/auth/me", authHandler.GetMe)
		auth.GET("/blogs", userHandler.GetAllBlogs)

		auth.POST("/uploads/post", uploadHandler.UploadPostImage)
		auth.PATCH("/avatar-update/:id", userHandler.UploadAvatar)
		auth.DELETE("/image-delete/:directory/:filename", uploadHandler.DeleteImage)

		auth.POST("/posts", postHandler.CreatePost)
		auth.PATCH("/posts/:id", postHandler.Update)
		auth.DELETE("/posts/:id/:userId", postHandler.Remove)

		auth.POST("/posts/checks", moderationHandler.CreateCheck)
		auth.GET("/posts/checks/user/:id", moderationHandler.GetCheckByUser)

		auth.POST("/posts/comments", commentHandler.Create)
		auth.DELETE("/comments/:id/:postId", commentHandler.Remove)
	}

	moderator := auth.Group("/posts/checks")
	moderator.Use(middleware.RequireModerator())
	{
		moderator.GET("", moderationHandler.GetAllCheck)
		moderator.GET("/:id", moderationHandler.GetOneCheck)
		moderator.PATCH("/:id", moderationHandler.UpdateCheck)
		moderator.DELETE("/:id", moderationHandler.RemoveCheck)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	cfg.ExposeHeaders = []string{middleware.RequestIDHeader}
	return cfg
}
