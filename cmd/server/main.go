package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyerin/maplecart-backend/config"
	"github.com/hyerin/maplecart-backend/internal/app/controller"
	"github.com/hyerin/maplecart-backend/internal/app/repository"
	"github.com/hyerin/maplecart-backend/internal/app/service"
	"github.com/hyerin/maplecart-backend/internal/db"
	"github.com/hyerin/maplecart-backend/internal/middleware"
	"github.com/hyerin/maplecart-backend/internal/router"
	"github.com/hyerin/maplecart-backend/internal/scheduler"
	"github.com/hyerin/maplecart-backend/internal/storage"
	ws "github.com/hyerin/maplecart-backend/internal/websocket"
	"github.com/hyerin/maplecart-backend/pkg/logger"
	"github.com/hyerin/maplecart-backend/pkg/redis"
	"github.com/hyerin/maplecart-backend/pkg/util"
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
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting MapleCart Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	util.SetBcryptCost(cfg.Auth.BcryptCost)

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
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis is optional; cart caching and token blacklisting degrade
	// gracefully without it.
	var cartCache service.CartCache
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, continuing without cart cache", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		defer redis.Close()
		cartCache = redis.NewCartCache(cfg.Pricing.CartCacheTTL)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())
	membershipRepo := repository.NewMembershipRepository(db.GetDB())
	promotionRepo := repository.NewPromotionRepository(db.GetDB())

	pricingRules := service.PricingRules{
		ShippingFlatRate:      cfg.Pricing.ShippingFlatRate,
		FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
		TaxRate:               cfg.Pricing.TaxRate,
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.JWT)
	productService := service.NewProductService(productRepo)
	promotionService := service.NewPromotionService(promotionRepo)
	membershipService := service.NewMembershipService(membershipRepo)
	cartService := service.NewCartService(cartRepo, productRepo, membershipRepo, promotionService, pricingRules, cartCache)
	orderService := service.NewOrderService(orderRepo, cartRepo, membershipRepo, promotionService, pricingRules, cartCache, db.GetDB())

	// WebSocket hub for cross-session cart sync
	hub := ws.NewHub()
	go hub.Run()

	// S3 storage for product images
	s3Storage := storage.NewS3Storage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	// Initialize controllers
	authController := controller.NewAuthController(authService, cfg.JWT.AccessTokenExpiry)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService, hub)
	cartSyncController := controller.NewCartSyncController(cartService, hub, cfg.CORS.AllowedOrigins)
	orderController := controller.NewOrderController(orderService, cartService, hub)
	membershipController := controller.NewMembershipController(membershipService)
	promotionController := controller.NewPromotionController(promotionService)
	uploadController := controller.NewUploadController(s3Storage)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Membership period rollover job
	membershipScheduler := scheduler.NewMembershipScheduler(membershipService)
	if err := membershipScheduler.Start(); err != nil {
		logger.Fatal("Failed to start membership scheduler", err)
	}
	defer membershipScheduler.Stop()

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		cartSyncController,
		orderController,
		membershipController,
		promotionController,
		uploadController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
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

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
