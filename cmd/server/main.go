package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/sneakers-backend/config"
	"github.com/ikkim/sneakers-backend/internal/app/controller"
	"github.com/ikkim/sneakers-backend/internal/app/repository"
	"github.com/ikkim/sneakers-backend/internal/app/service"
	"github.com/ikkim/sneakers-backend/internal/db"
	"github.com/ikkim/sneakers-backend/internal/middleware"
	"github.com/ikkim/sneakers-backend/internal/router"
	"github.com/ikkim/sneakers-backend/internal/scheduler"
	"github.com/ikkim/sneakers-backend/internal/session"
	ws "github.com/ikkim/sneakers-backend/internal/websocket"
	"github.com/ikkim/sneakers-backend/pkg/logger"
	"github.com/ikkim/sneakers-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Server.LogFormat,
		EnableColor: cfg.Server.LogFormat == "console",
	})

	logger.Info("Starting Sneakers Backend Server", map[string]interface{}{
		"environment":   cfg.Server.Environment,
		"port":          cfg.Server.Port,
		"log_level":     logLevel,
		"session_store": cfg.Session.Store,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Session registry
	var sessions session.Store
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
		sessions = redis.NewSessionStore(redis.GetClient(), cfg.Session.TTL)
	default:
		logger.Warn("Using stateless session store; session tokens are not tracked")
		sessions = session.NewStatelessStore()
	}

	activityRepo := repository.NewSessionActivityRepository(db.GetDB())
	sessions = session.NewTrackingStore(sessions, activityRepo)

	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	favoriteRepo := repository.NewFavoriteRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())

	// Initialize services
	mergeService := service.NewAccountMergeService(cartRepo, favoriteRepo)
	authService := service.NewAuthService(
		db.GetDB(),
		userRepo,
		mergeService,
		sessions,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(cartRepo, productRepo)
	favoriteService := service.NewFavoriteService(favoriteRepo, productRepo)
	orderService := service.NewOrderService(db.GetDB(), orderRepo, cartRepo, productRepo, hub)
	cleanupService := service.NewSessionCleanupService(cartRepo, favoriteRepo, activityRepo, cfg.Session.TTL)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	identityResolver := middleware.NewIdentityResolver(authMiddleware, sessions, cfg.Session)

	// Initialize controllers
	authController := controller.NewAuthController(authService, identityResolver)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService)
	favoriteController := controller.NewFavoriteController(favoriteService)
	orderController := controller.NewOrderController(orderService, hub, cfg.CORS.AllowedOrigins)

	r := router.NewRouter(
		authController,
		productController,
		cartController,
		favoriteController,
		orderController,
		authMiddleware,
		identityResolver,
		cfg,
	)
	engine := r.Setup()

	if cfg.Cleanup.Enabled {
		cleanupScheduler := scheduler.NewSessionCleanupScheduler(cleanupService, cfg.Cleanup.Schedule)
		if err := cleanupScheduler.Start(); err != nil {
			logger.Fatal("Failed to start session cleanup scheduler", err)
		}
		defer cleanupScheduler.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	logger.Info("Server stopped successfully")
}
