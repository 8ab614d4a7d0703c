package ingest

import (
	"context"
	"errors"
	"strings"

	"saas-knowledge-indexer/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Control-plane collection names.
const (
	PostsCollection        = "posts"
	LmsEntriesCollection   = "lms_entries"
	LmsEntryMetaCollection = "lms_entry_meta"
	RagSourcesCollection   = "rag_sources"
	RagStatusCollection    = "rag_index_status"
)

// MongoContentStore reads CMS posts from the control-plane database.
type MongoContentStore struct {
	posts *mongo.Collection
}

func NewMongoContentStore(db *mongo.Database) *MongoContentStore {
	return &MongoContentStore{posts: db.Collection(PostsCollection)}
}

func (s *MongoContentStore) PostForIngestion(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// MongoLmsStore reads LMS entries and their meta rows. The LMS owns these
// collections; this store only reads.
type MongoLmsStore struct {
	entries *mongo.Collection
	meta    *mongo.Collection
}

func NewMongoLmsStore(db *mongo.Database) *MongoLmsStore {
	return &MongoLmsStore{
		entries: db.Collection(LmsEntriesCollection),
		meta:    db.Collection(LmsEntryMetaCollection),
	}
}

func (s *MongoLmsStore) Entry(ctx context.Context, id string) (*models.LmsEntry, error) {
	var entry models.LmsEntry
	err := s.entries.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *MongoLmsStore) EntryMeta(ctx context.Context, id string) ([]models.MetaField, error) {
	cursor, err := s.meta.Find(ctx, bson.M{"entry_id": id})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var fields []models.MetaField
	for cursor.Next(ctx) {
		var row struct {
			Key   string      `bson:"key"`
			Value interface{} `bson:"value"`
		}
		if err := cursor.Decode(&row); err != nil {
			continue
		}
		fields = append(fields, models.MetaField{Key: row.Key, Value: row.Value})
	}
	return fields, cursor.Err()
}

// MongoConfigStore reads source configs.
type MongoConfigStore struct {
	sources *mongo.Collection
}

func NewMongoConfigStore(db *mongo.Database) *MongoConfigStore {
	return &MongoConfigStore{sources: db.Collection(RagSourcesCollection)}
}

func (s *MongoConfigStore) Source(ctx context.Context, organizationID, sourceType, postTypeSlug string) (*models.RagSource, error) {
	var cfg models.RagSource
	err := s.sources.FindOne(ctx, bson.M{
		"organization_id": organizationID,
		"source_type":     sourceType,
		"post_type_slug":  strings.ToLower(postTypeSlug),
	}).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MongoStatusStore upserts audit rows keyed by content identity. Patch if
// the row exists, insert otherwise; rows are never deleted.
type MongoStatusStore struct {
	statuses *mongo.Collection
}

func NewMongoStatusStore(db *mongo.Database) *MongoStatusStore {
	return &MongoStatusStore{statuses: db.Collection(RagStatusCollection)}
}

func (s *MongoStatusStore) Upsert(ctx context.Context, status models.RagIndexStatus) error {
	filter := bson.M{
		"organization_id": status.OrganizationID,
		"source_type":     status.SourceType,
		"post_type_slug":  status.PostTypeSlug,
		"post_id":         status.PostID,
	}
	set := bson.M{
		"entry_key":       status.EntryKey,
		"last_status":     status.LastStatus,
		"last_attempt_at": status.LastAttemptAt,
	}
	// A failed attempt must not erase the record of the last success.
	if status.LastSuccessAt != nil {
		set["last_success_at"] = status.LastSuccessAt
	}
	if status.LastError != "" {
		set["last_error"] = status.LastError
	}
	if status.LastEntryID != "" {
		set["last_entry_id"] = status.LastEntryID
		set["last_entry_status"] = status.LastEntryStatus
	}
	update := bson.M{"$set": set}
	_, err := s.statuses.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}
