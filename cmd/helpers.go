package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/ziadkadry99/convobot/internal/config"
	"github.com/ziadkadry99/convobot/internal/corpus"
	"github.com/ziadkadry99/convobot/internal/embeddings"
	"github.com/ziadkadry99/convobot/internal/engine"
	"github.com/ziadkadry99/convobot/internal/flows"
	"github.com/ziadkadry99/convobot/internal/index"
	"github.com/ziadkadry99/convobot/internal/recognizer"
	"github.com/ziadkadry99/convobot/internal/responder"
	"github.com/ziadkadry99/convobot/internal/session"
)

// loadConfigAndCorpus is the shared startup path: config, validation, and
// the corpus documents. A bad corpus aborts startup.
func loadConfigAndCorpus() (*config.Config, *corpus.Corpus, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	c, err := corpus.Load(cfg.Corpus.Intents, cfg.Corpus.Flows)
	if err != nil {
		return nil, nil, fmt.Errorf("loading corpus: %w", err)
	}
	return cfg, c, nil
}

// createEmbedder builds the configured embedding provider.
func createEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.Embedding.Model)), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.Dimensions, cfg.Embedding.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// createSessionStore builds the configured session backend.
func createSessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Backend {
	case config.SessionRedis:
		return session.NewRedisStore(ctx, cfg.Session.RedisAddr, cfg.Session.RedisPassword,
			cfg.Session.RedisDB, cfg.SessionTTL())
	default:
		return session.NewMemoryStore(cfg.SessionTTL()), nil
	}
}

// assembleEngine wires the process-wide pieces into a conversation engine.
// idx may be nil; recognition then always falls back, which keeps the
// serving path alive when the index could not be built.
func assembleEngine(cfg *config.Config, c *corpus.Corpus, emb embeddings.Embedder, idx *index.Index, store session.Store, sink flows.Sink) *engine.Engine {
	rec := recognizer.New(emb, idx, cfg.Recognizer.TopK, float32(cfg.Recognizer.MinConfidence))
	flowEngine := flows.NewEngine(c, sink, cfg.Flows.MaxFieldRetries)
	selector := responder.New(rand.NewSource(time.Now().UnixNano()))
	return engine.New(c, rec, flowEngine, store, selector)
}
