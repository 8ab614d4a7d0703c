package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saas-knowledge-indexer/internal/ai"
	"saas-knowledge-indexer/internal/auth"
	"saas-knowledge-indexer/internal/chunk"
	"saas-knowledge-indexer/internal/config"
	"saas-knowledge-indexer/internal/index"
	"saas-knowledge-indexer/internal/logger"
	"saas-knowledge-indexer/internal/telemetry"
	"saas-knowledge-indexer/middleware"
	"saas-knowledge-indexer/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Tracing + metrics
	shutdownTracer, err := telemetry.InitTracer("saas-knowledge-indexer")
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	// Connect to Redis (rate limiting)
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	// Asynq client for ingestion triggers
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer asynqClient.Close()

	// Index writer; runs without embeddings when no API key is configured,
	// in which case search reports the degraded state.
	namespaces := index.NewNamespaces(mongoClient)
	var embedder index.Embedder
	if cfg.GeminiAPIKey != "" {
		embeddingClient, err := ai.NewEmbeddingClient(context.Background(), cfg)
		if err != nil {
			log.Fatal("Failed to initialize embedding client:", err)
		}
		defer embeddingClient.Close()
		embedder = embeddingClient
	} else {
		logger.Warn("GEMINI_API_KEY not set; search and ingestion are disabled")
	}
	writer := index.NewWriter(namespaces, embedder,
		chunk.New(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize),
		db.Collection("rag_sources"))

	// Service-token auth
	issuer, err := auth.NewTokenIssuer(cfg.ServiceTokenSecret)
	if err != nil {
		log.Fatal("Failed to initialize token issuer:", err)
	}
	authMiddleware := middleware.NewAuthMiddleware(issuer)

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.MetricsMiddleware(metrics))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// API routes, all org-scoped
	api := router.Group("/api")
	api.Use(authMiddleware.RequireServiceToken())
	api.Use(middleware.EnrichTrace())
	api.Use(middleware.RateLimitMiddleware(rdb, cfg))

	orgScoped := api.Group("")
	orgScoped.Use(authMiddleware.RequireOrganizationScope())
	routes.SetupSourceRoutes(orgScoped, db)
	routes.SetupStatusRoutes(orgScoped, db)
	routes.SetupIngestRoutes(orgScoped, asynqClient)
	routes.SetupSearchRoutes(orgScoped, writer, metrics)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
