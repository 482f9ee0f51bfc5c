package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spotlighthq/spotlight/internal/config"
	"github.com/spotlighthq/spotlight/internal/service"
	"github.com/spotlighthq/spotlight/internal/service/heygen"
	"github.com/spotlighthq/spotlight/internal/service/publisher"
	"github.com/spotlighthq/spotlight/internal/service/publisher/linkedin"
	"github.com/spotlighthq/spotlight/internal/store"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Store         store.Store
	AutoPost      *service.AutoPostService
	AvatarService *service.AvatarService
	Scheduler     *service.Scheduler
	Stats         *service.StatsService
	Auth          *service.AuthService
	Publishers    *publisher.Manager
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := store.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	st := store.NewGormStore(db)
	if err := st.SeedNiches(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to seed niches: %w", err)
	}

	// Initialize services
	contentService := service.NewContentService(&cfg.Content, st, logger)
	imageService := service.NewImageService(&cfg.Images, logger)
	videoService := heygen.NewService(&cfg.HeyGen, logger)

	publishers := publisher.NewManager(logger)
	if err := publishers.Register(linkedin.NewPublisher(&cfg.LinkedIn, st, logger)); err != nil {
		return nil, fmt.Errorf("failed to register linkedin publisher: %w", err)
	}

	autoPost := service.NewAutoPostService(st, contentService, videoService, imageService, logger)
	avatarService := service.NewAvatarService(st, videoService, logger)
	statsService := service.NewStatsService(st, logger)
	authService := service.NewAuthService(logger, cfg.Auth.TOTPSecret)

	scheduler, err := service.NewScheduler(&cfg.Scheduler, logger, st, videoService, autoPost, publishers)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	// Create router
	router := gin.New()

	// Create server
	srv := &Server{
		Config:        cfg,
		DB:            db,
		Router:        router,
		Logger:        logger,
		Store:         st,
		AutoPost:      autoPost,
		AvatarService: avatarService,
		Scheduler:     scheduler,
		Stats:         statsService,
		Auth:          authService,
		Publishers:    publishers,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	if s.Config.Auth.Enabled {
		s.Router.Use(s.Auth.AuthMiddleware())
	}
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		api.POST("/auth/login", s.handleLogin)

		posts := api.Group("/posts")
		{
			posts.GET("", s.handleListPosts)
			posts.GET("/stats", s.handlePostStats)
			posts.POST("", s.handleCreatePost)
			posts.POST("/:id/retry", s.handleRetryPost)
			posts.PATCH("/:id", s.handleUpdatePost)
		}

		api.GET("/niches", s.handleListNiches)
		api.GET("/platforms", s.handleListPlatforms)
		api.POST("/avatar", s.handleProvisionAvatar)
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Start scheduler
	if err := s.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop scheduler first
	s.Scheduler.Stop()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
