package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	IngestionOutcomes   metric.Int64Counter
	EntriesUpserted     metric.Int64Counter
	EntriesDeleted      metric.Int64Counter
	EmbeddingDuration   metric.Float64Histogram
	SearchQueries       metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("saas-knowledge-indexer")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	ingestionOutcomes, err := meter.Int64Counter(
		"ingestion.outcomes.total",
		metric.WithDescription("Ingestion attempts by outcome status"),
	)
	if err != nil {
		return nil, err
	}

	entriesUpserted, err := meter.Int64Counter(
		"index.entries.upserted",
		metric.WithDescription("Index entries written as ready"),
	)
	if err != nil {
		return nil, err
	}

	entriesDeleted, err := meter.Int64Counter(
		"index.entries.deleted",
		metric.WithDescription("Index entries removed"),
	)
	if err != nil {
		return nil, err
	}

	embeddingDuration, err := meter.Float64Histogram(
		"embeddings.request.duration",
		metric.WithDescription("Embedding request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	searchQueries, err := meter.Int64Counter(
		"search.queries.total",
		metric.WithDescription("Total search queries"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		IngestionOutcomes:   ingestionOutcomes,
		EntriesUpserted:     entriesUpserted,
		EntriesDeleted:      entriesDeleted,
		EmbeddingDuration:   embeddingDuration,
		SearchQueries:       searchQueries,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordIngestion records the outcome of a single ingestion attempt
func (m *Metrics) RecordIngestion(source, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("ingest.source", source),
		attribute.String("ingest.status", status),
	}

	m.IngestionOutcomes.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordEntryUpserted records a ready entry write
func (m *Metrics) RecordEntryUpserted(organizationID string) {
	attrs := []attribute.KeyValue{
		attribute.String("organization.id", organizationID),
	}

	m.EntriesUpserted.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordEntryDeleted records an entry removal
func (m *Metrics) RecordEntryDeleted(organizationID string) {
	attrs := []attribute.KeyValue{
		attribute.String("organization.id", organizationID),
	}

	m.EntriesDeleted.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordEmbedding records embedding request duration
func (m *Metrics) RecordEmbedding(duration float64, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("embeddings.status", status),
	}

	m.EmbeddingDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordSearchQuery records a search query
func (m *Metrics) RecordSearchQuery(organizationID string, results int) {
	attrs := []attribute.KeyValue{
		attribute.String("organization.id", organizationID),
		attribute.Int("search.results", results),
	}

	m.SearchQueries.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
