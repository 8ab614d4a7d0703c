package index

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	entriesCollection = "index_entries"
	chunksCollection  = "index_chunks"
)

// Namespaces hands out the per-organization database each organization's
// index entries live in. Creation is lazy and idempotent; namespaces are
// never torn down. Mongo's own guarantees cover concurrent creation, this
// type only caches handles.
type Namespaces struct {
	client    *mongo.Client
	databases map[string]*mongo.Database
	mu        sync.RWMutex
}

func NewNamespaces(client *mongo.Client) *Namespaces {
	return &Namespaces{
		client:    client,
		databases: make(map[string]*mongo.Database),
	}
}

// Get returns the namespace database for an organization, creating its
// collections and indexes on first use.
func (n *Namespaces) Get(ctx context.Context, organizationID string) (*mongo.Database, error) {
	name := NamespaceForOrganization(organizationID)

	n.mu.RLock()
	if db, exists := n.databases[name]; exists {
		n.mu.RUnlock()
		return db, nil
	}
	n.mu.RUnlock()

	n.mu.Lock()
	defer n.mu.Unlock()

	// Double-check after acquiring write lock
	if db, exists := n.databases[name]; exists {
		return db, nil
	}

	db := n.client.Database(name)
	if err := n.createNamespaceIndexes(ctx, db); err != nil {
		return nil, err
	}

	n.databases[name] = db
	return db, nil
}

// Peek returns a handle without creating indexes or caching. Used by the
// delete and search paths, which must not materialize a namespace that was
// never written to.
func (n *Namespaces) Peek(organizationID string) *mongo.Database {
	name := NamespaceForOrganization(organizationID)

	n.mu.RLock()
	if db, exists := n.databases[name]; exists {
		n.mu.RUnlock()
		return db
	}
	n.mu.RUnlock()

	return n.client.Database(name)
}

func (n *Namespaces) createNamespaceIndexes(ctx context.Context, db *mongo.Database) error {
	entriesCol := db.Collection(entriesCollection)
	_, err := entriesCol.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "entry_key", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "filter_values", Value: 1}}},
	})
	if err != nil {
		return err
	}

	chunksCol := db.Collection(chunksCollection)
	_, err = chunksCol.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "entry_id", Value: 1}}},
		{Keys: bson.D{{Key: "entry_id", Value: 1}, {Key: "chunk_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}
