package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/convobot/internal/corpus"
	"github.com/ziadkadry99/convobot/internal/embeddings"
)

// Artifact filenames inside the index directory.
const (
	manifestFile = "manifest.json"
	indexFile    = "patterns.gob.gz"
	mappingFile  = "embeddings_map.json"
)

// Builder embeds every corpus pattern and produces a queryable Index,
// persisting the artifacts so an unchanged corpus is not re-embedded on
// the next start.
type Builder struct {
	Embedder embeddings.Embedder
	// Dir is the artifact directory. Empty disables persistence.
	Dir string
	// Progress, when set, is called after each embedded pattern batch.
	Progress func(done, total int)
}

// BuildOrLoad loads persisted artifacts when their manifest fingerprint
// matches the corpus (and the embedder is unchanged), and rebuilds from
// scratch otherwise. The decision is gated on the fingerprint, never on
// bare file existence, so a stale index is never served silently.
func (b *Builder) BuildOrLoad(ctx context.Context, c *corpus.Corpus) (*Index, error) {
	if b.Dir != "" {
		if ix, err := b.load(c); err == nil {
			slog.Info("loaded similarity index from artifacts", "patterns", ix.Count(), "dir", b.Dir)
			return ix, nil
		} else if !os.IsNotExist(err) {
			slog.Warn("index artifacts unusable, rebuilding", "error", err)
		}
	}
	return b.Build(ctx, c)
}

// Build embeds the full corpus and constructs a fresh index, overwriting
// any persisted artifacts. The returned index is complete; callers must
// not serve recognition traffic against a partially built one.
func (b *Builder) Build(ctx context.Context, c *corpus.Corpus) (*Index, error) {
	entries := collectEntries(c)
	if len(entries) == 0 {
		return nil, fmt.Errorf("corpus has no patterns to index")
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Pattern
	}

	vectors, err := b.embedAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding corpus patterns: %w", err)
	}

	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, embeddings.ToChromemFunc(b.Embedder))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, len(entries))
	mapping := make(map[int]PatternEntry, len(entries))
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("%d", e.ID),
			Content:   e.Pattern,
			Metadata:  map[string]string{"intent": e.Intent},
			Embedding: normalize(vectors[i]),
		}
		mapping[e.ID] = e
	}
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("adding pattern documents: %w", err)
	}

	ix := &Index{db: db, collection: col, entries: mapping}

	if b.Dir != "" {
		if err := b.persist(db, c, mapping); err != nil {
			// Non-fatal: serve from memory for this process lifetime.
			slog.Warn("persisting index artifacts failed, running degraded", "error", err, "dir", b.Dir)
			ix.degraded = true
		}
	}

	slog.Info("built similarity index", "patterns", len(entries), "embedder", b.Embedder.Name())
	return ix, nil
}

// embedAll batches pattern embedding so Progress can report between batches.
func (b *Builder) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	const batch = 64
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batch {
		end := min(start+batch, len(texts))
		vecs, err := b.Embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
		if b.Progress != nil {
			b.Progress(end, len(texts))
		}
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d patterns", len(out), len(texts))
	}
	return out, nil
}

// load restores the index from persisted artifacts. It returns an error
// satisfying os.IsNotExist when artifacts are absent, and a descriptive
// error when they are stale or inconsistent.
func (b *Builder) load(c *corpus.Corpus) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(b.Dir, manifestFile))
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Fingerprint != c.Fingerprint() {
		return nil, fmt.Errorf("corpus fingerprint changed (%.12s -> %.12s)", m.Fingerprint, c.Fingerprint())
	}
	if m.Embedder != b.Embedder.Name() {
		return nil, fmt.Errorf("embedder changed (%s -> %s)", m.Embedder, b.Embedder.Name())
	}

	mapData, err := os.ReadFile(filepath.Join(b.Dir, mappingFile))
	if err != nil {
		return nil, err
	}
	var entries []PatternEntry
	if err := json.Unmarshal(mapData, &entries); err != nil {
		return nil, fmt.Errorf("parsing embeddings map: %w", err)
	}

	db := chromem.NewDB()
	if err := db.ImportFromFile(filepath.Join(b.Dir, indexFile), ""); err != nil {
		return nil, fmt.Errorf("importing index: %w", err)
	}
	col := db.GetCollection(collectionName, embeddings.ToChromemFunc(b.Embedder))
	if col == nil {
		return nil, fmt.Errorf("collection %q not found in imported index", collectionName)
	}
	if col.Count() != len(entries) || col.Count() != m.Count {
		return nil, fmt.Errorf("artifact mismatch: index has %d vectors, map has %d, manifest says %d",
			col.Count(), len(entries), m.Count)
	}

	mapping := make(map[int]PatternEntry, len(entries))
	for _, e := range entries {
		if _, dup := mapping[e.ID]; dup {
			return nil, fmt.Errorf("duplicate index id %d in embeddings map", e.ID)
		}
		mapping[e.ID] = e
	}

	return &Index{db: db, collection: col, entries: mapping}, nil
}

// persist writes the two artifacts plus the manifest.
func (b *Builder) persist(db *chromem.DB, c *corpus.Corpus, mapping map[int]PatternEntry) error {
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return err
	}

	if err := db.ExportToFile(filepath.Join(b.Dir, indexFile), true, ""); err != nil {
		return fmt.Errorf("exporting index: %w", err)
	}

	entries := make([]PatternEntry, 0, len(mapping))
	for _, e := range mapping {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	mapData, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(b.Dir, mappingFile), mapData, 0o644); err != nil {
		return fmt.Errorf("writing embeddings map: %w", err)
	}

	m := manifest{
		Fingerprint: c.Fingerprint(),
		Embedder:    b.Embedder.Name(),
		Dimensions:  b.Embedder.Dimensions(),
		Count:       len(entries),
		BuiltAt:     time.Now().UTC(),
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(b.Dir, manifestFile), data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// collectEntries flattens the corpus into deterministically ordered
// pattern entries with monotonically increasing ids.
func collectEntries(c *corpus.Corpus) []PatternEntry {
	names := make([]string, 0, len(c.Intents))
	for name := range c.Intents {
		names = append(names, name)
	}
	sort.Strings(names)

	var entries []PatternEntry
	id := 0
	for _, name := range names {
		for _, pattern := range c.Intents[name].Patterns {
			entries = append(entries, PatternEntry{ID: id, Intent: name, Pattern: pattern})
			id++
		}
	}
	return entries
}
