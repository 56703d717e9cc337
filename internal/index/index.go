// Package index builds and queries the approximate-nearest-neighbor index
// over corpus pattern embeddings. An Index is immutable once built: it is
// published fully constructed and shared read-only across all sessions.
package index

import (
	"context"
	"fmt"
	"math"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "patterns"

// Index is the queryable similarity index plus the id→intent mapping.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	entries    map[int]PatternEntry
	degraded   bool
}

// Query returns up to k nearest pattern entries for the query vector,
// most similar first.
func (ix *Index) Query(ctx context.Context, vec []float32, k int) ([]Neighbor, error) {
	if k <= 0 {
		k = 1
	}
	count := ix.collection.Count()
	if count == 0 {
		return nil, nil
	}
	// chromem-go requires nResults <= collection size.
	if k > count {
		k = count
	}

	results, err := ix.collection.QueryEmbedding(ctx, normalize(vec), k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("index query: %w", err)
	}

	neighbors := make([]Neighbor, 0, len(results))
	for _, r := range results {
		id, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, fmt.Errorf("malformed index id %q", r.ID)
		}
		entry, ok := ix.entries[id]
		if !ok {
			return nil, fmt.Errorf("index id %d missing from embeddings map", id)
		}
		neighbors = append(neighbors, Neighbor{Entry: entry, Similarity: r.Similarity})
	}
	return neighbors, nil
}

// Count returns the number of indexed patterns.
func (ix *Index) Count() int { return ix.collection.Count() }

// Degraded reports whether artifact persistence failed at build time. The
// index still serves queries, but the next process start rebuilds from
// scratch.
func (ix *Index) Degraded() bool { return ix.degraded }

// Entries returns the embeddings map. Exposed for artifact inspection.
func (ix *Index) Entries() map[int]PatternEntry { return ix.entries }

// normalize scales a vector to unit length; chromem's similarity assumes
// unit vectors.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
