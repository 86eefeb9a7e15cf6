// Package config loads application configuration from environment variables.
// All variables use the QUIZ_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Corpus     CorpusConfig
	Cache      CacheConfig
	AI         AIConfig
	Generation GenerationConfig
	Session    SessionConfig
	Log        LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// CorpusConfig holds study-material corpus settings.
type CorpusConfig struct {
	// Path is the directory containing subjects.yaml and the corpus files it
	// references.
	Path string
}

// CacheConfig holds Redis connection settings. An empty URL disables the
// cache-backed session store and falls back to in-memory sets.
type CacheConfig struct {
	URL string
	// SeenTTL bounds how long a session's seen-question set is kept.
	SeenTTL time.Duration
}

// AIConfig holds configuration for all model providers.
type AIConfig struct {
	Ollama OllamaConfig
	OpenAI OpenAIConfig
}

// OllamaConfig holds Ollama settings. The hosted ollama.com endpoint requires
// an API key; a self-hosted instance does not.
type OllamaConfig struct {
	Enabled bool
	URL     string
	APIKey  string
	Model   string
}

// OpenAIConfig holds settings for an OpenAI-compatible fallback provider.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// GenerationConfig holds the tunables of the question-generation loop.
type GenerationConfig struct {
	MaxContentChars int           // prompt content budget, in characters
	MaxAttempts     int           // model-call attempts per generation run
	RetryBackoff    time.Duration // wait between failed attempts
	OverSample      int           // extra passages drawn per topic for variety
	MinQuestions    int
	MaxQuestions    int
}

// SessionConfig holds cookie-session settings.
type SessionConfig struct {
	Secret string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with QUIZ_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("QUIZ_SERVER_PORT", 8080),
			Host: envStr("QUIZ_SERVER_HOST", "0.0.0.0"),
		},
		Corpus: CorpusConfig{
			Path: envStr("QUIZ_CORPUS_PATH", "./corpus"),
		},
		Cache: CacheConfig{
			URL:     envStr("QUIZ_CACHE_URL", ""),
			SeenTTL: envDuration("QUIZ_CACHE_SEEN_TTL", 12*time.Hour),
		},
		AI: AIConfig{
			Ollama: OllamaConfig{
				Enabled: envBool("QUIZ_AI_OLLAMA_ENABLED", true),
				URL:     envStr("QUIZ_AI_OLLAMA_URL", "https://ollama.com"),
				APIKey:  envStr("QUIZ_AI_OLLAMA_API_KEY", os.Getenv("OLLAMA_API_KEY")),
				Model:   envStr("QUIZ_AI_OLLAMA_MODEL", "gemma3:27b-cloud"),
			},
			OpenAI: OpenAIConfig{
				APIKey: envStr("QUIZ_AI_OPENAI_API_KEY", ""),
				Model:  envStr("QUIZ_AI_OPENAI_MODEL", "gpt-4o-mini"),
			},
		},
		Generation: GenerationConfig{
			MaxContentChars: envInt("QUIZ_GEN_MAX_CONTENT_CHARS", 6000),
			MaxAttempts:     envInt("QUIZ_GEN_MAX_ATTEMPTS", 5),
			RetryBackoff:    envDuration("QUIZ_GEN_RETRY_BACKOFF", time.Second),
			OverSample:      envInt("QUIZ_GEN_OVERSAMPLE", 1),
			MinQuestions:    envInt("QUIZ_GEN_MIN_QUESTIONS", 3),
			MaxQuestions:    envInt("QUIZ_GEN_MAX_QUESTIONS", 20),
		},
		Session: SessionConfig{
			Secret: envStr("QUIZ_SESSION_SECRET", ""),
		},
		Log: LogConfig{
			Level:  envStr("QUIZ_LOG_LEVEL", "info"),
			Format: envStr("QUIZ_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that required configuration is present. A missing model
// credential is fatal here, before any generation is attempted.
func (c *Config) Validate() error {
	if !c.HasAIProvider() {
		return fmt.Errorf("no model service credential configured: set QUIZ_AI_OLLAMA_API_KEY (or OLLAMA_API_KEY) for hosted Ollama, point QUIZ_AI_OLLAMA_URL at a local instance, or set QUIZ_AI_OPENAI_API_KEY")
	}

	if c.Generation.MinQuestions < 1 || c.Generation.MaxQuestions < c.Generation.MinQuestions {
		return fmt.Errorf("invalid question count bounds: min=%d max=%d", c.Generation.MinQuestions, c.Generation.MaxQuestions)
	}

	if c.Generation.MaxAttempts < 1 {
		return fmt.Errorf("QUIZ_GEN_MAX_ATTEMPTS must be at least 1, got %d", c.Generation.MaxAttempts)
	}

	return nil
}

// HasAIProvider returns true if at least one model provider is usable. Hosted
// Ollama needs a key; any non-default URL is assumed to be self-hosted.
func (c *Config) HasAIProvider() bool {
	if c.AI.OpenAI.APIKey != "" {
		return true
	}
	if !c.AI.Ollama.Enabled {
		return false
	}
	if c.AI.Ollama.APIKey != "" {
		return true
	}
	return !strings.Contains(c.AI.Ollama.URL, "ollama.com")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
