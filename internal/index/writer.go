// Package index owns the per-organization vector index: namespace
// resolution, keyed entry upserts and deletes, and similarity search over
// the stored chunk vectors.
package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saas-knowledge-indexer/internal/chunk"
	"saas-knowledge-indexer/internal/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Entry version states. A fresh upsert starts pending, becomes ready once
// its chunks are embedded and stored, and any prior version of the same key
// flips to replaced.
const (
	EntryStatusPending  = "pending"
	EntryStatusReady    = "ready"
	EntryStatusReplaced = "replaced"
)

// ErrNotConfigured is returned when the embedding credential is absent.
// Callers treat this as a benign deployment state, not a failure.
var ErrNotConfigured = errors.New("index: embedding provider not configured")

// EntryMetadata travels with an entry and comes back on search hits.
type EntryMetadata struct {
	EntryID string `bson:"entry_id" json:"entry_id"`
	Source  string `bson:"source" json:"source"`
	Slug    string `bson:"slug,omitempty" json:"slug,omitempty"`
}

// Entry is one logical searchable unit, keyed by entry key within a
// namespace.
type Entry struct {
	EntryKey     string
	Text         string
	Title        string
	FilterValues []string
	Metadata     EntryMetadata
	Importance   float64
}

// Receipt reports the stored entry version after an upsert.
type Receipt struct {
	EntryID string `json:"entry_id"`
	Status  string `json:"status"`
}

type entryDoc struct {
	EntryID      string        `bson:"entry_id"`
	EntryKey     string        `bson:"entry_key"`
	Title        string        `bson:"title"`
	FilterValues []string      `bson:"filter_values"`
	Metadata     EntryMetadata `bson:"metadata"`
	Importance   float64       `bson:"importance"`
	Status       string        `bson:"status"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}

// Embedder is the slice of the AI client the writer needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Writer performs keyed entry mutations inside one organization's
// namespace. A nil embedder puts the writer in the degraded
// missing-credential mode where every operation no-ops.
type Writer struct {
	namespaces *Namespaces
	embedder   Embedder
	chunker    *chunk.Chunker
	sources    *mongo.Collection
}

func NewWriter(namespaces *Namespaces, embedder Embedder, chunker *chunk.Chunker, sources *mongo.Collection) *Writer {
	return &Writer{
		namespaces: namespaces,
		embedder:   embedder,
		chunker:    chunker,
		sources:    sources,
	}
}

// Enabled reports whether the embedding provider is configured.
func (w *Writer) Enabled() bool {
	return w.embedder != nil
}

// Upsert stores an entry under its key, superseding any prior version. The
// new version is pending while its chunks are embedded, then ready; prior
// versions transition to replaced and lose their chunks.
func (w *Writer) Upsert(ctx context.Context, organizationID string, e Entry) (Receipt, error) {
	if !w.Enabled() {
		return Receipt{}, ErrNotConfigured
	}

	db, err := w.namespaces.Get(ctx, organizationID)
	if err != nil {
		return Receipt{}, err
	}
	entries := db.Collection(entriesCollection)
	chunks := db.Collection(chunksCollection)

	priorIDs, err := w.entryIDsForKey(ctx, entries, e.EntryKey)
	if err != nil {
		return Receipt{}, err
	}

	now := time.Now()
	entryID := uuid.NewString()
	doc := entryDoc{
		EntryID:      entryID,
		EntryKey:     e.EntryKey,
		Title:        e.Title,
		FilterValues: e.FilterValues,
		Metadata:     e.Metadata,
		Importance:   e.Importance,
		Status:       EntryStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := entries.InsertOne(ctx, doc); err != nil {
		return Receipt{}, err
	}

	if err := w.writeChunks(ctx, chunks, entryID, e.Text); err != nil {
		// Roll back the pending version so a retry starts clean.
		_, _ = entries.DeleteOne(ctx, bson.M{"entry_id": entryID})
		_, _ = chunks.DeleteMany(ctx, bson.M{"entry_id": entryID})
		return Receipt{}, err
	}

	// Supersede prior versions and drop their chunks.
	if len(priorIDs) > 0 {
		_, err = entries.UpdateMany(ctx,
			bson.M{"entry_key": e.EntryKey, "entry_id": bson.M{"$in": priorIDs}},
			bson.M{"$set": bson.M{"status": EntryStatusReplaced, "updated_at": time.Now()}},
		)
		if err != nil {
			return Receipt{}, err
		}
		if _, err := chunks.DeleteMany(ctx, bson.M{"entry_id": bson.M{"$in": priorIDs}}); err != nil {
			return Receipt{}, err
		}
	}

	_, err = entries.UpdateOne(ctx,
		bson.M{"entry_id": entryID},
		bson.M{"$set": bson.M{"status": EntryStatusReady, "updated_at": time.Now()}},
	)
	if err != nil {
		return Receipt{}, err
	}

	logger.Debug("index entry upserted",
		"organization_id", organizationID,
		"entry_key", e.EntryKey,
		"entry_id", entryID,
		"replaced", len(priorIDs),
	)

	return Receipt{EntryID: entryID, Status: EntryStatusReady}, nil
}

// DeleteByKey removes every version of an entry. Silently a no-op when the
// namespace or key does not exist; deletion is called speculatively.
func (w *Writer) DeleteByKey(ctx context.Context, organizationID, entryKey string) error {
	if !w.Enabled() {
		return nil
	}

	db := w.namespaces.Peek(organizationID)
	entries := db.Collection(entriesCollection)
	chunks := db.Collection(chunksCollection)

	ids, err := w.entryIDsForKey(ctx, entries, entryKey)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if _, err := chunks.DeleteMany(ctx, bson.M{"entry_id": bson.M{"$in": ids}}); err != nil {
		return err
	}
	_, err = entries.DeleteMany(ctx, bson.M{"entry_key": entryKey})
	return err
}

// TouchIndexedAt stamps the owning source config after a successful upsert
// so administrators can see the content type is actively producing entries.
func (w *Writer) TouchIndexedAt(ctx context.Context, sourceID primitive.ObjectID) error {
	if !w.Enabled() {
		return nil
	}

	now := time.Now()
	_, err := w.sources.UpdateByID(ctx, sourceID, bson.M{
		"$set": bson.M{"last_indexed_at": now, "updated_at": now},
	})
	return err
}

func (w *Writer) entryIDsForKey(ctx context.Context, entries *mongo.Collection, entryKey string) ([]string, error) {
	cursor, err := entries.Find(ctx, bson.M{"entry_key": entryKey},
		options.Find().SetProjection(bson.M{"entry_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			EntryID string `bson:"entry_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		ids = append(ids, doc.EntryID)
	}
	return ids, cursor.Err()
}

func (w *Writer) writeChunks(ctx context.Context, chunks *mongo.Collection, entryID, text string) error {
	pieces := w.chunker.Split(text)
	if len(pieces) == 0 {
		return nil
	}

	batch := make([]mongo.WriteModel, 0, len(pieces))
	for _, piece := range pieces {
		vec, err := w.embedder.Embed(ctx, piece.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", piece.Order, err)
		}
		chunkID := fmt.Sprintf("%s_%d", entryID, piece.Order)
		doc := bson.M{
			"entry_id":   entryID,
			"chunk_id":   chunkID,
			"order":      piece.Order,
			"text":       piece.Text,
			"char_count": piece.CharCount,
			"word_count": piece.WordCount,
			"vector":     vec,
		}
		batch = append(batch, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"entry_id": entryID, "chunk_id": chunkID}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}

	_, err := chunks.BulkWrite(ctx, batch, options.BulkWrite().SetOrdered(false))
	return err
}
