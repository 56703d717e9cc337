// Package embeddings converts text into fixed-dimension dense vectors.
// The engine treats providers as pure functions of their input: the same
// utterance always maps to the same vector for a given model.
package embeddings

import "context"

// Embedder generates semantic embeddings for user utterances and corpus
// patterns.
type Embedder interface {
	// Embed generates embeddings for one or more texts, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the model identifier. Index artifacts record it so a
	// model change invalidates persisted embeddings.
	Name() string
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	return vecs[0], nil
}
