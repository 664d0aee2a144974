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

	"github.com/townmarket/townmarket-backend/config"
	"github.com/townmarket/townmarket-backend/internal/app/controller"
	"github.com/townmarket/townmarket-backend/internal/app/repository"
	"github.com/townmarket/townmarket-backend/internal/app/service"
	"github.com/townmarket/townmarket-backend/internal/db"
	"github.com/townmarket/townmarket-backend/internal/middleware"
	"github.com/townmarket/townmarket-backend/internal/router"
	"github.com/townmarket/townmarket-backend/internal/storage"
	"github.com/townmarket/townmarket-backend/pkg/logger"
	"github.com/townmarket/townmarket-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting Town Market Backend Server", map[string]interface{}{
		"environment":    cfg.Server.Environment,
		"port":           cfg.Server.Port,
		"log_level":      logLevel,
		"storage_driver": cfg.Storage.Driver,
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

	// Run migrations
	if err := db.Migrate(db.GetDB()); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	if err := db.SeedAdmin(db.GetDB(), cfg.Admin); err != nil {
		logger.Warn("Failed to seed admin user", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Initialize blob storage
	store, err := storage.New(cfg.Storage, cfg.S3)
	if err != nil {
		logger.Fatal("Failed to initialize storage", err)
	}
	publicBaseURL := cfg.Storage.PublicBaseURL
	if s3Store, ok := store.(*storage.S3Storage); ok {
		publicBaseURL = s3Store.PublicBaseURL()
	}

	// Token blacklist is optional; without it logout only clears the cookie
	var (
		revoker   service.TokenRevoker
		blacklist middleware.TokenBlacklist
	)
	if cfg.Redis.Enabled() {
		client, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, logout will not revoke tokens", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer client.Close()
			tokens := redis.NewTokenBlacklist(client)
			revoker = tokens
			blacklist = tokens
		}
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	placeRepo := repository.NewPlaceRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())

	// Initialize services
	validate := service.NewFieldValidator()
	authService := service.NewAuthService(userRepo, revoker, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	userService := service.NewUserService(userRepo, validate)
	placeService := service.NewEntityService(placeRepo, store, validate, cfg.Upload, publicBaseURL)
	productService := service.NewEntityService(productRepo, store, validate, cfg.Upload, publicBaseURL)
	dashboardService := service.NewDashboardService(placeService, productService, userRepo)
	landingService := service.NewLandingService(placeService, productService)

	// Initialize controllers
	authController := controller.NewAuthController(authService, cfg.JWT.AccessTokenExpiry, cfg.JWT.CookieSecure)
	placeController := controller.NewEntityController(placeService)
	productController := controller.NewEntityController(productService)
	userController := controller.NewUserController(userService)
	dashboardController := controller.NewDashboardController(dashboardService)
	landingController := controller.NewLandingController(landingService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, blacklist, cfg.Server.LoginPath).WithUserFinder(userRepo)

	// Setup router
	r := router.NewRouter(
		authController,
		placeController,
		productController,
		userController,
		dashboardController,
		landingController,
		authMiddleware,
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
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
