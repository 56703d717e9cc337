// Package config loads convobot configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (CONVOBOT_*). Nested keys use a double
// underscore: CONVOBOT_SESSION__BACKEND=redis.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("CONVOBOT_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "CONVOBOT_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[EmbeddingProvider]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

var validBackends = map[SessionBackend]bool{
	SessionMemory: true,
	SessionRedis:  true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding provider %q: must be openai or ollama", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding model is required")
	}
	if c.Embedding.Provider == ProviderOllama && c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions are required for the ollama provider")
	}

	if len(c.Corpus.Intents) == 0 {
		return fmt.Errorf("at least one corpus intent pattern is required")
	}

	if c.Recognizer.MinConfidence <= 0 || c.Recognizer.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in (0, 1], got %v", c.Recognizer.MinConfidence)
	}
	if c.Recognizer.TopK <= 0 {
		return fmt.Errorf("top_k must be positive")
	}

	if !validBackends[c.Session.Backend] {
		return fmt.Errorf("invalid session backend %q: must be memory or redis", c.Session.Backend)
	}
	if c.Session.TTLSeconds <= 0 {
		return fmt.Errorf("session ttl_seconds must be positive")
	}
	if c.Session.Backend == SessionRedis && c.Session.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required for the redis session backend")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	return nil
}

// SessionTTL returns the session TTL as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLSeconds) * time.Second
}

// APIKeyEnvVar returns the conventional environment variable name for the
// configured embedding provider's API key, or empty when none is needed.
func (c *Config) APIKeyEnvVar() string {
	if c.Embedding.Provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return ""
}
