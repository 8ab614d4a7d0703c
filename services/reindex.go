package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"saas-knowledge-indexer/internal/logger"
	"saas-knowledge-indexer/internal/queue"
	"saas-knowledge-indexer/models"
)

// Reindexer periodically re-enqueues ingestion for every piece of content
// covered by an enabled source config. It is the recovery path for content
// whose lifecycle hook never fired or whose ingestion failed past its
// retries.
type Reindexer struct {
	db        *mongo.Database
	client    *asynq.Client
	scheduler *gocron.Scheduler
}

func NewReindexer(db *mongo.Database, client *asynq.Client) *Reindexer {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &Reindexer{
		db:        db,
		client:    client,
		scheduler: s,
	}
}

// Start registers the sweep on the given cron expression and runs the
// scheduler in the background.
func (r *Reindexer) Start(cronExpr string) error {
	_, err := r.scheduler.Cron(cronExpr).Tag("reindex-sweep").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		if err := r.Sweep(ctx); err != nil {
			logger.Error("Reindex sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	r.scheduler.StartAsync()
	logger.Info("Reindex sweep scheduled", "cron", cronExpr)
	return nil
}

func (r *Reindexer) Stop() {
	r.scheduler.Stop()
}

// Sweep walks every enabled source config and enqueues one ingestion task
// per matching content record. Per-record enqueue failures are logged and
// skipped so one bad record cannot stall the sweep.
func (r *Reindexer) Sweep(ctx context.Context) error {
	cursor, err := r.db.Collection("rag_sources").Find(ctx, bson.M{"is_enabled": true})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var configs []models.RagSource
	if err := cursor.All(ctx, &configs); err != nil {
		return err
	}

	enqueued := 0
	for _, cfg := range configs {
		n, err := r.sweepConfig(ctx, cfg)
		if err != nil {
			logger.Error("Sweep failed for source config",
				"organization_id", cfg.OrganizationID,
				"post_type_slug", cfg.PostTypeSlug,
				"error", err)
			continue
		}
		enqueued += n
	}

	logger.Info("Reindex sweep finished", "configs", len(configs), "tasks_enqueued", enqueued)
	return nil
}

func (r *Reindexer) sweepConfig(ctx context.Context, cfg models.RagSource) (int, error) {
	if cfg.SourceType == models.SourceTypeLms {
		return r.sweepLms(ctx, cfg)
	}
	return r.sweepPosts(ctx, cfg)
}

func (r *Reindexer) sweepPosts(ctx context.Context, cfg models.RagSource) (int, error) {
	cursor, err := r.db.Collection("posts").Find(ctx,
		bson.M{
			"organization_id": cfg.OrganizationID,
			"post_type_slug":  cfg.PostTypeSlug,
		},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	enqueued := 0
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return enqueued, err
		}

		task, err := queue.NewIngestPostTask(doc.ID)
		if err != nil {
			return enqueued, err
		}
		// Sweep traffic yields to hook-driven ingestion.
		if _, err := r.client.EnqueueContext(ctx, task, asynq.Queue("low")); err != nil {
			logger.Warn("Failed to enqueue sweep task", "post_id", doc.ID, "error", err)
			continue
		}
		enqueued++
	}
	return enqueued, cursor.Err()
}

func (r *Reindexer) sweepLms(ctx context.Context, cfg models.RagSource) (int, error) {
	cursor, err := r.db.Collection("lms_entries").Find(ctx,
		bson.M{
			"organization_id": cfg.OrganizationID,
			"post_type_slug":  cfg.PostTypeSlug,
		},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	enqueued := 0
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return enqueued, err
		}

		task, err := queue.NewIngestLmsTask(doc.ID, cfg.PostTypeSlug, cfg.OrganizationID)
		if err != nil {
			return enqueued, err
		}
		if _, err := r.client.EnqueueContext(ctx, task, asynq.Queue("low")); err != nil {
			logger.Warn("Failed to enqueue sweep task", "entry_id", doc.ID, "error", err)
			continue
		}
		enqueued++
	}
	return enqueued, cursor.Err()
}
