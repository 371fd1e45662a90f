package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-admin-api/api/swagger"
	"github.com/noah-isme/lms-admin-api/internal/handler"
	"github.com/noah-isme/lms-admin-api/internal/middleware"
	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/repository"
	"github.com/noah-isme/lms-admin-api/internal/service"
	"github.com/noah-isme/lms-admin-api/pkg/cache"
	"github.com/noah-isme/lms-admin-api/pkg/config"
	"github.com/noah-isme/lms-admin-api/pkg/database"
	"github.com/noah-isme/lms-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-admin-api/pkg/middleware/requestid"
	"github.com/noah-isme/lms-admin-api/pkg/storage"
)

// @title LMS Admin API
// @version 1.0.0
// @description Admin API for users, courses and course contents
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Database.RunMigrations {
		if err := database.Migrate(cfg.Database); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, list cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	store, localStore, err := buildStore(cfg)
	if err != nil {
		logr.Fatal("failed to init object store", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo != nil)
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	contentRepo := repository.NewContentRepository(db)

	userSvc := service.NewUserService(userRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, store, cacheSvc, metricsSvc, validate, logr)
	contentSvc := service.NewContentService(contentRepo, courseRepo, validate, logr)

	userHandler := handler.NewUserHandler(userSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	contentHandler := handler.NewContentHandler(contentSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if localStore != nil {
		fileHandler := handler.NewFileHandler(localStore)
		r.GET("/files/:key", fileHandler.Download)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	editors := middleware.RequireRoles(models.RoleAdmin, models.RoleEditor)

	users := api.Group("/users")
	users.Use(adminOnly)
	{
		users.GET("", userHandler.List)
		users.POST("", userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/export", adminOnly, courseHandler.Export)
		courses.GET("/:id", courseHandler.Get)
		courses.POST("", editors, courseHandler.Create)
		courses.PUT("/:id", editors, courseHandler.Update)
		courses.DELETE("/:id", adminOnly, courseHandler.Delete)
		courses.POST("/:id/image", editors, courseHandler.UploadImage)
		courses.POST("/:id/image-url", editors, courseHandler.IssueImageURL)

		courses.GET("/:id/contents", contentHandler.List)
		courses.GET("/:id/contents/:contentId", contentHandler.Get)
		courses.POST("/:id/contents", editors, contentHandler.Create)
		courses.PUT("/:id/contents/:contentId", editors, contentHandler.Update)
		courses.DELETE("/:id/contents/:contentId", editors, contentHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "storage", cfg.Storage.Driver)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// buildStore selects the object storage driver. The local store is returned
// separately so the file download route is only mounted when it is in use.
func buildStore(cfg *config.Config) (service.ObjectStore, *storage.LocalStore, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverS3:
		s3Store, err := storage.NewS3Store(context.Background(), cfg.Storage)
		if err != nil {
			return nil, nil, err
		}
		return s3Store, nil, nil
	case config.StorageDriverLocal, "":
		localStore, err := storage.NewLocalStore(cfg.Storage.BaseDir, cfg.PublicURL,
			cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
		if err != nil {
			return nil, nil, err
		}
		return localStore, localStore, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
