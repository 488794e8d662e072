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
	"github.com/joho/godotenv"
	"github.com/voyis/gallery-backend/internal/config"
	"github.com/voyis/gallery-backend/internal/handlers"
	"github.com/voyis/gallery-backend/internal/middleware"
	"github.com/voyis/gallery-backend/internal/models"
	"github.com/voyis/gallery-backend/internal/pkg/imaging"
	"github.com/voyis/gallery-backend/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.New()

	// Initialize database
	db, err := models.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Run migrations
	if err := models.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis (rate limiting; the limiters fail open without it)
	redisClient := models.InitRedis(cfg)
	defer redisClient.Close()

	// Initialize services
	processor := imaging.NewProcessor(90)
	blobStore := services.NewBlobStore(cfg)
	catalogService := services.NewCatalogService(db)
	ingestService := services.NewIngestService(cfg, catalogService, blobStore, processor)
	cropService := services.NewCropService(catalogService, blobStore, processor)
	exportService := services.NewExportService(catalogService, blobStore)

	// Setup Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimiter(redisClient, cfg))

	// Initialize handlers
	galleryHandler := handlers.NewGalleryHandler(cfg, catalogService, blobStore, ingestService, cropService, exportService)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Setup routes
	api := router.Group("/api")
	{
		api.GET("/status", galleryHandler.Status)
		api.GET("/images", galleryHandler.ListImages)
		api.GET("/download-zip", galleryHandler.DownloadZip)

		// Write endpoints with daily upload rate limiting
		writeGroup := api.Group("")
		writeGroup.Use(middleware.UploadRateLimit(redisClient, cfg))
		{
			writeGroup.POST("/upload", galleryHandler.Upload)
			writeGroup.POST("/crop", galleryHandler.Crop)
		}
	}

	// Raw blob serving for the gallery grid
	router.GET("/uploads/:filename", galleryHandler.ServeBlob)

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  120 * time.Second, // large TIF batches
		WriteTimeout: 120 * time.Second, // zip exports
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
