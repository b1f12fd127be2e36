package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/vaddzy/community-api/api/swagger"
	"github.com/vaddzy/community-api/internal/handler"
	"github.com/vaddzy/community-api/internal/middleware"
	"github.com/vaddzy/community-api/internal/mirror"
	"github.com/vaddzy/community-api/internal/models"
	"github.com/vaddzy/community-api/internal/repository"
	"github.com/vaddzy/community-api/internal/service"
	"github.com/vaddzy/community-api/pkg/cache"
	"github.com/vaddzy/community-api/pkg/config"
	"github.com/vaddzy/community-api/pkg/database"
	"github.com/vaddzy/community-api/pkg/jobs"
	"github.com/vaddzy/community-api/pkg/logger"
	corsmiddleware "github.com/vaddzy/community-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vaddzy/community-api/pkg/middleware/requestid"
	"github.com/vaddzy/community-api/pkg/storage"
)

// @title Vaddzy Community API
// @version 1.0.0
// @description Sync backend for the Vaddzy creative collaboration site
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	mediaStore, err := storage.NewLocalStorage(cfg.Media.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init media storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Media.SignedURLSecret, cfg.Media.SignedURLTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	identityRepo := repository.NewIdentityRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	mediaRepo := repository.NewMediaRepository(db)
	siteConfigRepo := repository.NewSiteConfigRepository(db)

	// Change notification transport and mirror store.
	notifier := mirror.NewRedisNotifier(redisClient, cfg.Namespace, logr)
	metricsSvc := service.NewMetricsService()
	store := mirror.NewStore(logr, metricsSvc)
	defer store.Close()

	validate := validator.New()

	// Services.
	sessionSvc := service.NewSessionService(identityRepo, notifier, validate, logr, service.SessionConfig{
		TokenSecret:   cfg.JWT.Secret,
		TokenExpiry:   cfg.JWT.Expiration,
		Issuer:        cfg.JWT.Issuer,
		AdminUsername: cfg.Admin.Username,
		AdminPassword: cfg.Admin.Password,
		AdminAvatar:   service.DefaultAvatarRef(cfg.Admin.Username),
	})
	announcementSvc := service.NewAnnouncementService(announcementRepo, notifier, logr)
	siteConfigSvc := service.NewSiteConfigService(siteConfigRepo, notifier, logr, models.SiteConfig{
		Title:   cfg.Site.DefaultTitle,
		Tagline: cfg.Site.DefaultTagline,
	})
	commentSvc := service.NewCommentService(commentRepo, postRepo, notifier, logr)
	likeSvc := service.NewLikeService(likeRepo, postRepo, notifier, logr)
	mediaSvc := service.NewMediaService(mediaRepo, mediaStore, signer, notifier, logr)
	identitySvc := service.NewIdentityService(identityRepo, mediaStore, notifier, logr)
	viewSvc := service.NewViewService(postRepo, likeRepo, commentRepo, mediaSvc, logr)

	var postSvc *service.PostService
	cascadeQueue := jobs.NewQueue("post-cascade", func(ctx context.Context, job jobs.Job) error {
		return postSvc.HandleCascade(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Cascade.Workers,
		MaxRetries: cfg.Cascade.MaxRetries,
		RetryDelay: cfg.Cascade.RetryDelay,
		Logger:     logr,
	})
	postSvc = service.NewPostService(postRepo, commentRepo, likeRepo, mediaStore, cascadeQueue, notifier, logr)
	cascadeQueue.Start(ctx)
	defer cascadeQueue.Stop()

	// Mirror loaders decode through the repositories, so every record crossing
	// the subscription boundary has been through the typed schema.
	store.RegisterLoader(mirror.CollectionUsers, func(ctx context.Context) (interface{}, error) {
		identities, err := identityRepo.List(ctx)
		if err != nil {
			return nil, err
		}
		infos := make([]models.IdentityInfo, 0, len(identities))
		for _, identity := range identities {
			infos = append(infos, identity.Info())
		}
		return infos, nil
	})
	store.RegisterLoader(mirror.CollectionAnnouncements, func(ctx context.Context) (interface{}, error) {
		return announcementRepo.List(ctx)
	})
	store.RegisterLoader(mirror.CollectionPosts, func(ctx context.Context) (interface{}, error) {
		return postRepo.List(ctx)
	})
	store.RegisterLoader(mirror.CollectionComments, func(ctx context.Context) (interface{}, error) {
		return commentRepo.List(ctx)
	})
	store.RegisterLoader(mirror.CollectionLikes, func(ctx context.Context) (interface{}, error) {
		return likeRepo.List(ctx)
	})
	store.RegisterLoader(mirror.CollectionSiteConfig, func(ctx context.Context) (interface{}, error) {
		return siteConfigSvc.Get(ctx)
	})
	store.RegisterMediaLoader(func(ownerID string) mirror.Loader {
		return func(ctx context.Context) (interface{}, error) {
			return mediaRepo.ListByOwner(ctx, ownerID)
		}
	})

	go store.Run(ctx, notifier.Listen(ctx))

	// Handlers.
	authHandler := handler.NewAuthHandler(sessionSvc)
	announcementHandler := handler.NewAnnouncementHandler(announcementSvc)
	postHandler := handler.NewPostHandler(postSvc)
	commentHandler := handler.NewCommentHandler(commentSvc)
	likeHandler := handler.NewLikeHandler(likeSvc)
	mediaHandler := handler.NewMediaHandler(mediaSvc)
	userHandler := handler.NewUserHandler(identitySvc)
	siteConfigHandler := handler.NewSiteConfigHandler(siteConfigSvc)
	feedHandler := handler.NewFeedHandler(viewSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	streamHandler := handler.NewStreamHandler(store, metricsSvc, logr, handler.StreamConfig{
		WriteTimeout: cfg.Stream.WriteTimeout,
		PingInterval: cfg.Stream.PingInterval,
		SendBuffer:   cfg.Stream.SendBuffer,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.MaxMultipartMemory = cfg.Media.MaxFileSizeBytes

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/anonymous", authHandler.Anonymous)
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.POST("/logout", middleware.JWT(sessionSvc), authHandler.Logout)
	auth.GET("/me", middleware.JWT(sessionSvc), authHandler.Me)

	api.GET("/site-config", siteConfigHandler.Get)
	api.PUT("/site-config", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleAdmin), siteConfigHandler.Update)

	api.GET("/announcements", announcementHandler.List)
	api.POST("/announcements", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleAdmin), announcementHandler.Create)
	api.DELETE("/announcements/:id", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleAdmin), announcementHandler.Delete)

	api.GET("/feed", middleware.OptionalJWT(sessionSvc), feedHandler.Feed)
	api.GET("/sections", middleware.OptionalJWT(sessionSvc), feedHandler.Sections)

	api.POST("/posts", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleAdmin), postHandler.Create)
	api.DELETE("/posts/:id", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleAdmin), postHandler.Delete)
	api.POST("/posts/:id/comments", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleVisitor, models.RoleAdmin), commentHandler.Create)
	api.POST("/posts/:id/like", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleVisitor, models.RoleAdmin), likeHandler.Toggle)
	api.DELETE("/comments/:id", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleVisitor, models.RoleAdmin), commentHandler.Delete)

	api.POST("/media", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleVisitor), mediaHandler.Upload)
	api.DELETE("/media/:id", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleVisitor), mediaHandler.Delete)
	api.GET("/media/download", mediaHandler.Download)

	api.GET("/users", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleAdmin), userHandler.List)
	api.POST("/users/:id/ban", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleAdmin), userHandler.ToggleBan)
	api.DELETE("/users/:id", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleAdmin), userHandler.Delete)
	api.PUT("/users/me/avatar", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleVisitor), userHandler.UpdateAvatar)

	api.GET("/status", middleware.JWT(sessionSvc), middleware.RequireRoles(models.RoleAdmin), metricsHandler.Status)

	api.GET("/stream", middleware.OptionalJWT(sessionSvc), streamHandler.Stream)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "namespace", cfg.Namespace)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
