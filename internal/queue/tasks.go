package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"saas-knowledge-indexer/internal/ingest"
	"saas-knowledge-indexer/internal/logger"
	"saas-knowledge-indexer/internal/telemetry"
)

const (
	TaskIngestPost = "ingest:post"
	TaskIngestLms  = "ingest:lms"
)

type IngestPostPayload struct {
	PostID string `json:"post_id"`
}

type IngestLmsPayload struct {
	EntryID        string `json:"entry_id"`
	PostTypeSlug   string `json:"post_type_slug,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// Task creators
func NewIngestPostTask(postID string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPostPayload{PostID: postID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestPost,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("default"),
	), nil
}

func NewIngestLmsTask(entryID, postTypeSlug, organizationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestLmsPayload{
		EntryID:        entryID,
		PostTypeSlug:   postTypeSlug,
		OrganizationID: organizationID,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestLms,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("default"),
	), nil
}

// Task handlers
type TaskProcessor struct {
	orchestrator *ingest.Orchestrator
	metrics      *telemetry.Metrics
}

func NewTaskProcessor(orchestrator *ingest.Orchestrator, metrics *telemetry.Metrics) *TaskProcessor {
	return &TaskProcessor{
		orchestrator: orchestrator,
		metrics:      metrics,
	}
}

func (p *TaskProcessor) HandleIngestPost(ctx context.Context, t *asynq.Task) error {
	var payload IngestPostPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Debug("Ingesting post", "post_id", payload.PostID)

	result, err := p.orchestrator.IngestPost(ctx, payload.PostID)
	if err != nil {
		return err // Will retry
	}

	if p.metrics != nil {
		p.metrics.RecordIngestion("post", result.Status)
	}

	logger.Info("Post ingestion finished",
		"post_id", payload.PostID,
		"status", result.Status,
		"entry_key", result.EntryKey)
	return nil
}

func (p *TaskProcessor) HandleIngestLms(ctx context.Context, t *asynq.Task) error {
	var payload IngestLmsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Debug("Ingesting LMS entry", "entry_id", payload.EntryID, "post_type_slug", payload.PostTypeSlug)

	result, err := p.orchestrator.IngestLmsEntry(ctx, payload.EntryID, payload.PostTypeSlug, payload.OrganizationID)
	if err != nil {
		return err // Will retry
	}

	if p.metrics != nil {
		p.metrics.RecordIngestion("lms", result.Status)
	}

	logger.Info("LMS ingestion finished",
		"entry_id", payload.EntryID,
		"status", result.Status,
		"entry_key", result.EntryKey)
	return nil
}
