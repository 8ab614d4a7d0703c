package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI string
	DBName   string
	Port     string
	GinMode  string

	CORSOrigins []string

	// Service-to-service auth
	ServiceTokenSecret string

	// Embeddings configuration. GeminiAPIKey may legitimately be empty:
	// the pipeline then reports missingApiKey instead of indexing.
	GeminiAPIKey          string
	EmbeddingsProvider    string // "google" (default)
	GoogleEmbeddingsModel string // e.g., "text-embedding-004"
	EmbeddingsRPM         int
	VectorDimensions      int

	// Chunking
	MaxChunkSize int
	ChunkOverlap int
	MinChunkSize int

	// Redis Configuration (rate limiting + task queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Worker
	WorkerConcurrency int
	ReindexCron       string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/knowledge_indexer"),
		DBName:   getEnv("DB_NAME", "knowledge_indexer"),
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),

		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		ServiceTokenSecret: getEnv("SERVICE_TOKEN_SECRET", ""),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		EmbeddingsRPM:         getEnvInt("EMBEDDINGS_RPM", 100),
		VectorDimensions:      getEnvInt("VECTOR_DIM", 768),

		MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		MinChunkSize: getEnvInt("MIN_CHUNK_SIZE", 100),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 20),
		ReindexCron:       getEnv("REINDEX_CRON", "0 3 * * *"),
	}

	// Validate required fields. GEMINI_API_KEY is deliberately not
	// required: its absence is the missingApiKey degraded mode.
	if cfg.ServiceTokenSecret == "" {
		return nil, fmt.Errorf("SERVICE_TOKEN_SECRET is required - set it in .env file")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
