package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ziadkadry99/convobot/internal/corpus"
	"github.com/ziadkadry99/convobot/internal/embeddings"
)

// countingEmbedder wraps the deterministic hash embedder and counts texts
// embedded, so tests can assert that a load path did no embedding work.
type countingEmbedder struct {
	*embeddings.HashEmbedder
	embedded int
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.embedded += len(texts)
	return c.HashEmbedder.Embed(ctx, texts)
}

func testCorpus(t *testing.T, extraIntent string) *corpus.Corpus {
	t.Helper()
	dir := t.TempDir()

	intents := `
intents:
  greeting:
    patterns: ["hello", "hi there", "good morning"]
    responses: ["Hi!"]
  pricing:
    patterns: ["how much does it cost", "what are your prices"]
    responses: ["It depends."]
  fallback:
    responses: ["Sorry?"]
` + extraIntent

	intentsPath := filepath.Join(dir, "intents.yml")
	if err := os.WriteFile(intentsPath, []byte(intents), 0o644); err != nil {
		t.Fatalf("writing intents: %v", err)
	}

	c, err := corpus.Load([]string{intentsPath}, "")
	if err != nil {
		t.Fatalf("loading corpus: %v", err)
	}
	return c
}

func TestBuildAndQuery(t *testing.T) {
	ctx := context.Background()
	c := testCorpus(t, "")
	b := &Builder{Embedder: embeddings.NewHashEmbedder(64)}

	ix, err := b.Build(ctx, c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ix.Count() != 5 {
		t.Errorf("expected 5 indexed patterns, got %d", ix.Count())
	}
	if ix.Degraded() {
		t.Error("in-memory build reported degraded")
	}

	// An exact pattern text must come back as its own nearest neighbor.
	vec, err := embeddings.EmbedOne(ctx, b.Embedder, "hello")
	if err != nil {
		t.Fatalf("embedding query: %v", err)
	}
	neighbors, err := ix.Query(ctx, vec, 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(neighbors) != 3 {
		t.Fatalf("expected 3 neighbors, got %d", len(neighbors))
	}
	best := neighbors[0]
	if best.Entry.Intent != "greeting" || best.Entry.Pattern != "hello" {
		t.Errorf("best neighbor = %+v, want greeting/hello", best.Entry)
	}
	if best.Similarity < 0.999 {
		t.Errorf("exact match similarity = %v, want ~1", best.Similarity)
	}
}

func TestBuildAssignsUniqueIDs(t *testing.T) {
	c := testCorpus(t, "")
	b := &Builder{Embedder: embeddings.NewHashEmbedder(32)}

	ix, err := b.Build(context.Background(), c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	entries := ix.Entries()
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for id, e := range entries {
		if id != e.ID {
			t.Errorf("entry keyed by %d carries id %d", id, e.ID)
		}
		if id < 0 || id >= len(entries) {
			t.Errorf("id %d outside contiguous range", id)
		}
	}
}

func TestBuildOrLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := testCorpus(t, "")
	dir := t.TempDir()

	first := &countingEmbedder{HashEmbedder: embeddings.NewHashEmbedder(64)}
	b1 := &Builder{Embedder: first, Dir: dir}
	ix1, err := b1.BuildOrLoad(ctx, c)
	if err != nil {
		t.Fatalf("first BuildOrLoad: %v", err)
	}
	if first.embedded == 0 {
		t.Fatal("first build embedded nothing")
	}
	if ix1.Degraded() {
		t.Fatal("persisting build reported degraded")
	}

	for _, name := range []string{manifestFile, indexFile, mappingFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("artifact %s missing: %v", name, err)
		}
	}

	// Unchanged corpus: load path, zero embedding calls, artifacts untouched.
	mapInfoBefore, _ := os.Stat(filepath.Join(dir, mappingFile))
	second := &countingEmbedder{HashEmbedder: embeddings.NewHashEmbedder(64)}
	b2 := &Builder{Embedder: second, Dir: dir}
	ix2, err := b2.BuildOrLoad(ctx, c)
	if err != nil {
		t.Fatalf("second BuildOrLoad: %v", err)
	}
	if second.embedded != 0 {
		t.Errorf("unchanged corpus re-embedded %d patterns", second.embedded)
	}
	if ix2.Count() != ix1.Count() {
		t.Errorf("reloaded index has %d patterns, want %d", ix2.Count(), ix1.Count())
	}
	mapInfoAfter, _ := os.Stat(filepath.Join(dir, mappingFile))
	if !mapInfoBefore.ModTime().Equal(mapInfoAfter.ModTime()) {
		t.Error("embeddings map rewritten despite unchanged fingerprint")
	}

	// Reloaded index must serve identical queries.
	vec, _ := embeddings.EmbedOne(ctx, second, "what are your prices")
	neighbors, err := ix2.Query(ctx, vec, 1)
	if err != nil {
		t.Fatalf("Query on reloaded index: %v", err)
	}
	if neighbors[0].Entry.Intent != "pricing" {
		t.Errorf("reloaded index best match = %+v", neighbors[0].Entry)
	}
}

func TestBuildOrLoadRebuildsOnFingerprintChange(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b := &Builder{Embedder: &countingEmbedder{HashEmbedder: embeddings.NewHashEmbedder(64)}, Dir: dir}
	if _, err := b.BuildOrLoad(ctx, testCorpus(t, "")); err != nil {
		t.Fatalf("initial BuildOrLoad: %v", err)
	}

	changed := testCorpus(t, `
  returns:
    patterns: ["how do I return an item"]
    responses: ["Easily."]
`)

	counting := &countingEmbedder{HashEmbedder: embeddings.NewHashEmbedder(64)}
	b2 := &Builder{Embedder: counting, Dir: dir}
	ix, err := b2.BuildOrLoad(ctx, changed)
	if err != nil {
		t.Fatalf("BuildOrLoad after change: %v", err)
	}
	if counting.embedded == 0 {
		t.Error("changed corpus did not trigger a rebuild")
	}
	if ix.Count() != 6 {
		t.Errorf("rebuilt index has %d patterns, want 6", ix.Count())
	}
}

func TestBuildDegradedWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	c := testCorpus(t, "")

	// Point the artifact dir at a regular file so MkdirAll fails.
	blocker := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("writing blocker: %v", err)
	}

	b := &Builder{Embedder: embeddings.NewHashEmbedder(32), Dir: filepath.Join(blocker, "index")}
	ix, err := b.Build(ctx, c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !ix.Degraded() {
		t.Error("expected degraded index when artifacts cannot be written")
	}
	// Degraded still serves queries.
	vec, _ := embeddings.EmbedOne(ctx, b.Embedder, "hello")
	if _, err := ix.Query(ctx, vec, 1); err != nil {
		t.Errorf("degraded index query failed: %v", err)
	}
}

func TestQueryCapsKAtCollectionSize(t *testing.T) {
	ctx := context.Background()
	b := &Builder{Embedder: embeddings.NewHashEmbedder(32)}
	ix, err := b.Build(ctx, testCorpus(t, ""))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	vec, _ := embeddings.EmbedOne(ctx, b.Embedder, "hello")
	neighbors, err := ix.Query(ctx, vec, 50)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(neighbors) != ix.Count() {
		t.Errorf("expected %d neighbors, got %d", ix.Count(), len(neighbors))
	}
}
