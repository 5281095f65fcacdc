package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/docvault/internal/auth"
	"github.com/docvault/internal/config"
	"github.com/docvault/internal/files"
	"github.com/docvault/internal/middleware"
	"github.com/docvault/internal/pdf"
	"github.com/docvault/internal/session"
	"github.com/docvault/internal/storage"
	"github.com/docvault/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Relational store
	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := store.Migrate(db, cfg.Database.Driver); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Infof("Connected to %s database", cfg.Database.Driver)

	userStore := store.NewUserStore(db)
	fileStore := store.NewFileStore(db)

	// Session store: relational or TTL-backed Redis, picked once here.
	var sessions auth.SessionStore
	switch cfg.Session.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		logger.Info("Connected to Redis")
		sessions = session.NewRedisStore(rdb, userStore)
	default:
		sessions = store.NewSessionStore(db)
	}

	// Object store
	objectStore, err := storage.NewService(&cfg.MinIO)
	if err != nil {
		logger.Fatalf("Failed to create object store: %v", err)
	}
	if err := objectStore.EnsureBucket(context.Background()); err != nil {
		logger.Fatalf("Failed to ensure bucket: %v", err)
	}
	logger.Info("Object store initialized")

	// Domain services, constructed explicitly and injected; no globals.
	authService := auth.NewService(userStore, sessions, logger)
	fileService := files.NewService(fileStore, objectStore, pdf.NewMerger(), logger)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := newRouter(authService, fileService, logger)

	srv := &http.Server{
		Addr:           cfg.Server.Addr(),
		Handler:        router,
		ReadTimeout:    5 * time.Minute,
		WriteTimeout:   5 * time.Minute,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Infof("Starting server on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// newRouter wires the HTTP surface: every route maps 1:1 to a service
// operation, with authentication resolved once by the bearer middleware.
func newRouter(authService *auth.Service, fileService *files.Service, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/register", handleRegister(authService))
		authGroup.POST("/login", handleLogin(authService))
		authGroup.POST("/logout", handleLogout(authService))
		authGroup.GET("/me", middleware.AuthMiddleware(authService), handleGetMe())
	}

	fileGroup := router.Group("/api/files")
	fileGroup.Use(middleware.AuthMiddleware(authService))
	{
		fileGroup.POST("", handleCreateFile(fileService))
		fileGroup.GET("", handleListFiles(fileService))
		fileGroup.POST("/merge", handleMergeFiles(fileService))
		fileGroup.GET("/:id", handleGetFile(fileService))
		fileGroup.POST("/:id/content", handleUploadContent(fileService))
		fileGroup.DELETE("/:id", handleDeleteFile(fileService))
	}

	return router
}
