// Package recognizer turns a free-text message into a recognized intent by
// embedding the text and querying the similarity index.
package recognizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/convobot/internal/corpus"
	"github.com/ziadkadry99/convobot/internal/embeddings"
	"github.com/ziadkadry99/convobot/internal/index"
)

// Defaults mirror the corpus tuning: top 5 neighbors, 0.7 confidence floor.
const (
	DefaultTopK          = 5
	DefaultMinConfidence = 0.7
)

// Result is the outcome of recognizing one message. When no intent clears
// the confidence threshold, Intent is the fallback and Confidence is the
// best (sub-threshold) score observed, or 0 for empty input.
type Result struct {
	Intent     string
	Confidence float32
	Pattern    string
	// Fallback is true when the message did not clear the threshold (or
	// the index is unavailable). A fallback is a designed outcome, not an
	// error.
	Fallback bool
}

// Recognizer performs similarity-based intent recognition. It is stateless
// and safe for concurrent use; the index it queries is read-only.
type Recognizer struct {
	embedder      embeddings.Embedder
	index         *index.Index
	topK          int
	minConfidence float32
}

// New creates a Recognizer. idx may be nil when the index failed to build,
// in which case every message resolves to the fallback intent.
func New(embedder embeddings.Embedder, idx *index.Index, topK int, minConfidence float32) *Recognizer {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Recognizer{
		embedder:      embedder,
		index:         idx,
		topK:          topK,
		minConfidence: minConfidence,
	}
}

// Degraded reports whether recognition is running without an index.
func (r *Recognizer) Degraded() bool { return r.index == nil }

// Recognize resolves text to an intent. Identical text against an
// identical index always yields the identical result.
func (r *Recognizer) Recognize(ctx context.Context, text string) (Result, error) {
	// Whitespace-only input never reaches the embedder.
	if strings.TrimSpace(text) == "" {
		return fallbackResult(0), nil
	}
	if r.index == nil {
		return fallbackResult(0), nil
	}

	vec, err := embeddings.EmbedOne(ctx, r.embedder, text)
	if err != nil {
		return fallbackResult(0), fmt.Errorf("embedding message: %w", err)
	}

	neighbors, err := r.index.Query(ctx, vec, r.topK)
	if err != nil {
		return fallbackResult(0), fmt.Errorf("querying index: %w", err)
	}
	if len(neighbors) == 0 {
		return fallbackResult(0), nil
	}

	best := neighbors[0]
	for _, n := range neighbors[1:] {
		if n.Similarity > best.Similarity {
			best = n
		}
	}

	confidence := clamp01(best.Similarity)
	if confidence < r.minConfidence {
		return fallbackResult(confidence), nil
	}

	return Result{
		Intent:     best.Entry.Intent,
		Confidence: confidence,
		Pattern:    best.Entry.Pattern,
	}, nil
}

func fallbackResult(confidence float32) Result {
	return Result{Intent: corpus.IntentFallback, Confidence: confidence, Fallback: true}
}

// clamp01 maps a cosine similarity into [0,1]; negative similarity carries
// no useful signal for short utterances.
func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
