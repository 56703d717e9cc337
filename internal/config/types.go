package config

// EmbeddingProvider identifies an embedding backend.
type EmbeddingProvider string

const (
	ProviderOpenAI EmbeddingProvider = "openai"
	ProviderOllama EmbeddingProvider = "ollama"
)

// SessionBackend identifies a session store backend.
type SessionBackend string

const (
	SessionMemory SessionBackend = "memory"
	SessionRedis  SessionBackend = "redis"
)

// Config is the top-level convobot configuration, corresponding to
// .convobot.yml.
type Config struct {
	DataDir    string           `yaml:"data_dir" koanf:"data_dir"`
	Corpus     CorpusConfig     `yaml:"corpus" koanf:"corpus"`
	Embedding  EmbeddingConfig  `yaml:"embedding" koanf:"embedding"`
	Recognizer RecognizerConfig `yaml:"recognizer" koanf:"recognizer"`
	Flows      FlowsConfig      `yaml:"flows" koanf:"flows"`
	Session    SessionConfig    `yaml:"session" koanf:"session"`
	Server     ServerConfig     `yaml:"server" koanf:"server"`
}

// CorpusConfig locates the intent catalogue and flow definitions.
type CorpusConfig struct {
	// Intents is a list of glob patterns matching intent YAML files.
	Intents []string `yaml:"intents" koanf:"intents"`
	Flows   string   `yaml:"flows" koanf:"flows"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider EmbeddingProvider `yaml:"provider" koanf:"provider"`
	Model    string            `yaml:"model" koanf:"model"`
	// BaseURL and Dimensions apply to the ollama provider.
	BaseURL    string `yaml:"base_url" koanf:"base_url"`
	Dimensions int    `yaml:"dimensions" koanf:"dimensions"`
}

// RecognizerConfig tunes intent matching.
type RecognizerConfig struct {
	MinConfidence float64 `yaml:"min_confidence" koanf:"min_confidence"`
	TopK          int     `yaml:"top_k" koanf:"top_k"`
}

// FlowsConfig tunes the conversation flow engine.
type FlowsConfig struct {
	MaxFieldRetries int `yaml:"max_field_retries" koanf:"max_field_retries"`
}

// SessionConfig selects the session store backend and TTL.
type SessionConfig struct {
	Backend SessionBackend `yaml:"backend" koanf:"backend"`
	// TTLSeconds bounds session context lifetime; refreshed on every write.
	TTLSeconds    int    `yaml:"ttl_seconds" koanf:"ttl_seconds"`
	RedisAddr     string `yaml:"redis_addr" koanf:"redis_addr"`
	RedisPassword string `yaml:"redis_password" koanf:"redis_password"`
	RedisDB       int    `yaml:"redis_db" koanf:"redis_db"`
}

// ServerConfig holds transport settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
