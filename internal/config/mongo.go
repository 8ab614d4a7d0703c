package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	// Source configs: unique per (org, source type, slug), plus a listing
	// index by organization.
	sourcesCollection := db.Collection("rag_sources")
	sourceIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "source_type", Value: 1},
				{Key: "post_type_slug", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "organization_id", Value: 1}},
		},
	}
	_, err := sourcesCollection.Indexes().CreateMany(context.Background(), sourceIndexes)
	if err != nil {
		return err
	}

	// Index statuses: unique per content identity, listing by organization.
	statusCollection := db.Collection("rag_index_status")
	statusIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "source_type", Value: 1},
				{Key: "post_type_slug", Value: 1},
				{Key: "post_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "organization_id", Value: 1}},
		},
	}
	_, err = statusCollection.Indexes().CreateMany(context.Background(), statusIndexes)
	if err != nil {
		return err
	}

	// Posts: lookup by organization and content type for the reindex sweep.
	postsCollection := db.Collection("posts")
	postIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "post_type_slug", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	}
	_, err = postsCollection.Indexes().CreateMany(context.Background(), postIndexes)
	if err != nil {
		return err
	}

	// LMS entries and their meta rows.
	lmsCollection := db.Collection("lms_entries")
	lmsIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "post_type_slug", Value: 1}},
		},
	}
	_, err = lmsCollection.Indexes().CreateMany(context.Background(), lmsIndexes)
	if err != nil {
		return err
	}

	lmsMetaCollection := db.Collection("lms_entry_meta")
	lmsMetaIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "entry_id", Value: 1}},
		},
	}
	_, err = lmsMetaCollection.Indexes().CreateMany(context.Background(), lmsMetaIndexes)
	return err
}
