package main

import (
	"context"
	"log"
	"time"

	"saas-knowledge-indexer/internal/ai"
	"saas-knowledge-indexer/internal/chunk"
	"saas-knowledge-indexer/internal/config"
	"saas-knowledge-indexer/internal/index"
	"saas-knowledge-indexer/internal/ingest"
	"saas-knowledge-indexer/internal/logger"
	"saas-knowledge-indexer/internal/queue"
	"saas-knowledge-indexer/internal/telemetry"
	"saas-knowledge-indexer/services"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("saas-knowledge-indexer-worker")
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

	// Embeddings are optional; without a key every ingestion reports the
	// missing credential instead of failing.
	var embedder index.Embedder
	if cfg.GeminiAPIKey != "" {
		embeddingClient, err := ai.NewEmbeddingClient(context.Background(), cfg)
		if err != nil {
			log.Fatal("Failed to initialize embedding client:", err)
		}
		defer embeddingClient.Close()
		embedder = embeddingClient
	} else {
		logger.Warn("GEMINI_API_KEY not set; ingestion will report missing credentials")
	}

	namespaces := index.NewNamespaces(mongoClient)
	writer := index.NewWriter(namespaces, embedder,
		chunk.New(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize),
		db.Collection("rag_sources"))

	orchestrator := ingest.NewOrchestrator(
		ingest.NewMongoContentStore(db),
		ingest.NewMongoLmsStore(db),
		ingest.NewMongoConfigStore(db),
		ingest.NewMongoStatusStore(db),
		writer,
	)

	// Redis options for Asynq
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	// Create Asynq server
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				"critical": 6, // 60% of workers
				"default":  3, // 30% of workers
				"low":      1, // 10% of workers
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	// Create task processor
	processor := queue.NewTaskProcessor(orchestrator, metrics)

	// Create mux and register handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestPost, processor.HandleIngestPost)
	mux.HandleFunc(queue.TaskIngestLms, processor.HandleIngestLms)

	// Periodic reindex sweep
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	reindexer := services.NewReindexer(db, asynqClient)
	if err := reindexer.Start(cfg.ReindexCron); err != nil {
		log.Fatal("Failed to schedule reindex sweep:", err)
	}
	defer reindexer.Stop()

	logger.Info("Starting worker",
		"concurrency", cfg.WorkerConcurrency,
		"redis", redisOpt.Addr,
		"reindex_cron", cfg.ReindexCron)

	// Start the server
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
