package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"grana/internal/config"
	"grana/internal/database"
	"grana/internal/handlers"
	"grana/internal/logger"
	"grana/internal/middleware"
	"grana/internal/services"
	"grana/internal/validator"
)

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize services and handlers
	syncService := services.NewSyncService(dbManager.DB())
	syncHandler := handlers.NewSyncHandler(syncService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group, sync requires a bearer token
	v1 := router.Group("/api/v1")
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("/sync", syncHandler.GetState)
	protected.POST("/sync", syncHandler.SaveState)

	log.Infof("Starting grana sync server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
