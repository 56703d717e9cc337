package index

import "time"

// PatternEntry ties an index id back to the intent and pattern text it was
// built from. The similarity index itself only stores vectors, so this
// mapping is persisted as its own artifact.
type PatternEntry struct {
	ID      int    `json:"id"`
	Intent  string `json:"intent"`
	Pattern string `json:"pattern"`
}

// Neighbor is one nearest-neighbor hit: the pattern entry plus its cosine
// similarity to the query vector.
type Neighbor struct {
	Entry      PatternEntry
	Similarity float32
}

// manifest records what the persisted artifacts were built from. A corpus
// or embedder change invalidates them.
type manifest struct {
	Fingerprint string    `json:"fingerprint"`
	Embedder    string    `json:"embedder"`
	Dimensions  int       `json:"dimensions"`
	Count       int       `json:"count"`
	BuiltAt     time.Time `json:"built_at"`
}
