package index

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// SearchResult is one knowledge hit, best-scoring chunk first.
type SearchResult struct {
	EntryID  string  `json:"entry_id"`
	EntryKey string  `json:"entry_key"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Source   string  `json:"source"`
	Slug     string  `json:"slug,omitempty"`
	Score    float64 `json:"score"`
}

// Search embeds the query and ranks ready entries in the organization's
// namespace by cosine similarity of their best chunk, weighted by the
// entry's static importance. Tags, when given, must match one of the
// entry's filter values.
func (w *Writer) Search(ctx context.Context, organizationID, query string, tags []string, limit int) ([]SearchResult, error) {
	if !w.Enabled() {
		return nil, ErrNotConfigured
	}
	if limit <= 0 || limit > 20 {
		limit = 5
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	queryVec, err := w.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	db := w.namespaces.Peek(organizationID)
	entries := db.Collection(entriesCollection)
	chunks := db.Collection(chunksCollection)

	filter := bson.M{"status": EntryStatusReady}
	if cleaned := cleanTags(tags); len(cleaned) > 0 {
		filter["filter_values"] = bson.M{"$in": cleaned}
	}

	cursor, err := entries.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	byID := make(map[string]entryDoc)
	var entryIDs []string
	for cursor.Next(ctx) {
		var doc entryDoc
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		byID[doc.EntryID] = doc
		entryIDs = append(entryIDs, doc.EntryID)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	if len(entryIDs) == 0 {
		return nil, nil
	}

	chunkCursor, err := chunks.Find(ctx, bson.M{"entry_id": bson.M{"$in": entryIDs}})
	if err != nil {
		return nil, err
	}
	defer chunkCursor.Close(ctx)

	type best struct {
		score float64
		text  string
	}
	bestByEntry := make(map[string]best)
	for chunkCursor.Next(ctx) {
		var doc struct {
			EntryID string    `bson:"entry_id"`
			Text    string    `bson:"text"`
			Vector  []float32 `bson:"vector"`
		}
		if err := chunkCursor.Decode(&doc); err != nil {
			continue
		}
		score := CosineSimilarity(queryVec, doc.Vector)
		if current, ok := bestByEntry[doc.EntryID]; !ok || score > current.score {
			bestByEntry[doc.EntryID] = best{score: score, text: doc.Text}
		}
	}
	if err := chunkCursor.Err(); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(bestByEntry))
	for entryID, b := range bestByEntry {
		entry := byID[entryID]
		results = append(results, SearchResult{
			EntryID:  entryID,
			EntryKey: entry.EntryKey,
			Title:    entry.Title,
			Content:  b.text,
			Source:   entry.Metadata.Source,
			Slug:     entry.Metadata.Slug,
			Score:    b.score * entry.Importance,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-length vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}
