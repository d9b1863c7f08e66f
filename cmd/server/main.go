package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nearify/nearify-backend/config"
	"github.com/nearify/nearify-backend/internal/app/controller"
	"github.com/nearify/nearify-backend/internal/app/repository"
	"github.com/nearify/nearify-backend/internal/app/service"
	"github.com/nearify/nearify-backend/internal/db"
	"github.com/nearify/nearify-backend/internal/middleware"
	"github.com/nearify/nearify-backend/internal/router"
	"github.com/nearify/nearify-backend/internal/scheduler"
	"github.com/nearify/nearify-backend/internal/storage"
	"github.com/nearify/nearify-backend/pkg/cache"
	"github.com/nearify/nearify-backend/pkg/email"
	"github.com/nearify/nearify-backend/pkg/geo"
	"github.com/nearify/nearify-backend/pkg/logger"
	"github.com/nearify/nearify-backend/pkg/overpass"
	"github.com/nearify/nearify-backend/pkg/payment/stripe"
	"github.com/nearify/nearify-backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting Nearify Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

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

	// Redis backs token revocation. The server still runs without it.
	useRedis := true
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, logout will not revoke tokens", map[string]interface{}{
			"error": err.Error(),
		})
		useRedis = false
	} else {
		defer redis.Close()
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	listingRepo := repository.NewListingRepository(db.GetDB())
	claimRepo := repository.NewClaimRepository(db.GetDB())

	// OpenStreetMap clients share the bounded geocode caches
	geoCache, err := cache.New(cfg.OSM.CacheSize, cfg.OSM.CacheTTL)
	if err != nil {
		logger.Fatal("Failed to create geocode cache", err)
	}
	revCache, err := cache.New(cfg.OSM.CacheSize, cfg.OSM.CacheTTL)
	if err != nil {
		logger.Fatal("Failed to create reverse geocode cache", err)
	}
	geoClient := geo.NewClient(cfg.OSM.NominatimURL, cfg.OSM.UserAgent, cfg.OSM.ContactEmail, geoCache, revCache)
	overpassClient := overpass.NewClient(overpass.DefaultEndpoints, cfg.OSM.UserAgent, geoClient, 0)

	// Stripe is optional: without a key, promotion endpoints report that
	// payments are disabled and everything else works.
	var payments service.PaymentClient
	if cfg.PaymentsEnabled() {
		stripeClient, err := stripe.NewClient(stripe.Config{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			BaseURL:       cfg.Stripe.BaseURL,
			SuccessURL:    cfg.Stripe.SuccessURL,
			CancelURL:     cfg.Stripe.CancelURL,
		})
		if err != nil {
			logger.Fatal("Failed to initialize Stripe client", err)
		}
		payments = stripeClient
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, promoted placement is disabled", nil)
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.JWT, useRedis)
	searchService := service.NewSearchService(listingRepo, geoClient, overpassClient)
	listingService := service.NewListingService(listingRepo)
	claimService := service.NewClaimService(claimRepo, listingRepo, email.NewSMTPSender(cfg.SMTP))
	promotionService := service.NewPromotionService(listingRepo, payments, cfg.Stripe)

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	searchController := controller.NewSearchController(searchService)
	listingController := controller.NewListingController(listingService)
	claimController := controller.NewClaimController(claimService)
	promotionController := controller.NewPromotionController(promotionService)
	uploadController := controller.NewUploadController(storage.NewS3Storage(cfg.S3))

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, useRedis)

	// Hourly cleanup of stale claim requests
	claimScheduler := scheduler.NewClaimScheduler(claimRepo)
	if err := claimScheduler.Start(); err != nil {
		logger.Fatal("Failed to start claim scheduler", err)
	}
	defer claimScheduler.Stop()

	r := router.NewRouter(
		authController,
		searchController,
		listingController,
		claimController,
		promotionController,
		uploadController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
