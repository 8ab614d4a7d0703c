package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"saas-knowledge-indexer/internal/config"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// EmbeddingClient wraps the Google Generative AI embedding endpoint with a
// circuit breaker and a client-side rate limiter. One instance is shared by
// the index writer and the search path.
type EmbeddingClient struct {
	client  *genai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewEmbeddingClient connects to the embedding provider. The caller must
// check cfg.GeminiAPIKey first; a missing key is an expected deployment
// state, not an error, and the pipeline degrades to missingApiKey statuses.
func NewEmbeddingClient(ctx context.Context, cfg *config.Config) (*EmbeddingClient, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiEmbeddings",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	// RPM limit with some buffer
	rpm := cfg.EmbeddingsRPM
	if rpm <= 0 {
		rpm = 100
	}
	limiter := rate.NewLimiter(rate.Limit(float64(rpm)*0.9/60.0), rpm/10+1)

	return &EmbeddingClient{
		client:  client,
		model:   cfg.GoogleEmbeddingsModel,
		breaker: breaker,
		limiter: limiter,
	}, nil
}

// Embed returns the embedding vector for the given text.
func (ec *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("embedding-client")
	ctx, span := tracer.Start(ctx, "embeddings.embed")
	defer span.End()

	span.SetAttributes(
		attribute.String("embeddings.model", ec.model),
		attribute.Int("embeddings.text_length", len(text)),
	)

	if err := ec.limiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("embeddings.rate_limited", true))
		return nil, err
	}

	result, err := ec.breaker.Execute(func() (interface{}, error) {
		model := ec.client.EmbeddingModel(ec.model)
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil {
			return nil, fmt.Errorf("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("embeddings.error", true))
		return nil, err
	}

	vec := result.([]float32)
	span.SetAttributes(attribute.Int("embeddings.dimensions", len(vec)))
	return vec, nil
}

// Close releases the underlying client.
func (ec *EmbeddingClient) Close() error {
	if ec.client != nil {
		return ec.client.Close()
	}
	return nil
}
