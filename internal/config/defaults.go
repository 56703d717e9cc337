package config

// DefaultConfig returns the configuration used when no file or overrides
// are present.
func DefaultConfig() *Config {
	return &Config{
		DataDir: ".convobot",
		Corpus: CorpusConfig{
			Intents: []string{"corpus/intents*.yml"},
			Flows:   "corpus/flows.yml",
		},
		Embedding: EmbeddingConfig{
			Provider: ProviderOpenAI,
			Model:    "text-embedding-3-small",
		},
		Recognizer: RecognizerConfig{
			MinConfidence: 0.7,
			TopK:          5,
		},
		Flows: FlowsConfig{
			MaxFieldRetries: 3,
		},
		Session: SessionConfig{
			Backend:    SessionMemory,
			TTLSeconds: 86400,
			RedisAddr:  "localhost:6379",
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}
