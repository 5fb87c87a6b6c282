package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"privateblog/access"
	"privateblog/admin"
	"privateblog/blog"
	"privateblog/cache"
	"privateblog/common"
	"privateblog/config"
	"privateblog/content"
	"privateblog/database"
	"privateblog/logging"
	"privateblog/media"
	"privateblog/metrics"
	"privateblog/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger, err := logging.NewSugar(cfg.Env)
	if err != nil {
		log.Fatal("Failed to create logger: ", err)
	}
	defer logger.Sync()

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := common.ConnectDb(cfg.Database, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to database", "error", err)
	}

	if err := database.RunMigrations(db, logger); err != nil {
		logger.Fatalw("Failed to run migrations", "error", err)
	}

	m, metricsHandler, err := metrics.Setup("privateblog")
	if err != nil {
		logger.Fatalw("Failed to set up metrics", "error", err)
	}

	store := content.NewStore(db, cfg.Content.PageSize)
	pages := cache.NewPageCache("index",
		cache.NewStore(cfg.Cache.Backend, cfg.Cache.RedisAddr, logger),
		cfg.Cache.IndexTTL, logger, m)

	router := gin.New()
	router.Use(common.Base(logger, m)...)

	sessionStore := cookie.NewStore([]byte(cfg.Session.Secret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.IsProd(),
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions("privateblog-session", sessionStore))
	router.Use(access.Identify(db))
	router.Use(common.RateLimit(cfg.Security.RateLimitRPM))

	router.Static(media.URLPrefix, cfg.Content.MediaRoot)
	router.GET("/metrics", gin.WrapH(metricsHandler))
	router.NoRoute(common.NotFound)

	blog.NewBlogModule(store, pages, logger).RegisterRoutes(router)
	admin.NewAdminModule(store, media.NewStorage(cfg.Content.MediaRoot), logger).RegisterRoutes(router)
	users.NewUsersModule(store, logger).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infow("Starting server", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalw("Server forced to shutdown", "error", err)
	}
	logger.Info("Server exited")
}
