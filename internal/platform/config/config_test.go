package config

import (
	"os"
	"testing"
	"time"
)

// clearEnv unsets all QUIZ_ environment variables for a clean test.
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"QUIZ_SERVER_PORT",
		"QUIZ_SERVER_HOST",
		"QUIZ_CORPUS_PATH",
		"QUIZ_CACHE_URL",
		"QUIZ_CACHE_SEEN_TTL",
		"QUIZ_AI_OLLAMA_ENABLED",
		"QUIZ_AI_OLLAMA_URL",
		"QUIZ_AI_OLLAMA_API_KEY",
		"QUIZ_AI_OLLAMA_MODEL",
		"QUIZ_AI_OPENAI_API_KEY",
		"QUIZ_AI_OPENAI_MODEL",
		"QUIZ_GEN_MAX_CONTENT_CHARS",
		"QUIZ_GEN_MAX_ATTEMPTS",
		"QUIZ_GEN_RETRY_BACKOFF",
		"QUIZ_GEN_OVERSAMPLE",
		"QUIZ_GEN_MIN_QUESTIONS",
		"QUIZ_GEN_MAX_QUESTIONS",
		"QUIZ_SESSION_SECRET",
		"QUIZ_LOG_LEVEL",
		"QUIZ_LOG_FORMAT",
		"OLLAMA_API_KEY",
	}
	for _, v := range envVars {
		_ = os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Corpus.Path != "./corpus" {
		t.Errorf("Corpus.Path = %q, want ./corpus", cfg.Corpus.Path)
	}
	if cfg.AI.Ollama.URL != "https://ollama.com" {
		t.Errorf("AI.Ollama.URL = %q, want https://ollama.com", cfg.AI.Ollama.URL)
	}
	if cfg.AI.Ollama.Model != "gemma3:27b-cloud" {
		t.Errorf("AI.Ollama.Model = %q, want gemma3:27b-cloud", cfg.AI.Ollama.Model)
	}
	if cfg.Generation.MaxContentChars != 6000 {
		t.Errorf("Generation.MaxContentChars = %d, want 6000", cfg.Generation.MaxContentChars)
	}
	if cfg.Generation.MaxAttempts != 5 {
		t.Errorf("Generation.MaxAttempts = %d, want 5", cfg.Generation.MaxAttempts)
	}
	if cfg.Generation.RetryBackoff != time.Second {
		t.Errorf("Generation.RetryBackoff = %v, want 1s", cfg.Generation.RetryBackoff)
	}
	if cfg.Generation.MinQuestions != 3 || cfg.Generation.MaxQuestions != 20 {
		t.Errorf("question bounds = %d..%d, want 3..20", cfg.Generation.MinQuestions, cfg.Generation.MaxQuestions)
	}
	if cfg.Cache.URL != "" {
		t.Errorf("Cache.URL = %q, want empty", cfg.Cache.URL)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)

	t.Setenv("QUIZ_SERVER_PORT", "9090")
	t.Setenv("QUIZ_CORPUS_PATH", "/data/corpus")
	t.Setenv("QUIZ_AI_OLLAMA_API_KEY", "ol-test-key")
	t.Setenv("QUIZ_AI_OLLAMA_MODEL", "llama3:8b")
	t.Setenv("QUIZ_GEN_MAX_ATTEMPTS", "3")
	t.Setenv("QUIZ_GEN_RETRY_BACKOFF", "250ms")
	t.Setenv("QUIZ_CACHE_URL", "redis://localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Corpus.Path != "/data/corpus" {
		t.Errorf("Corpus.Path = %q, want /data/corpus", cfg.Corpus.Path)
	}
	if cfg.AI.Ollama.APIKey != "ol-test-key" {
		t.Errorf("AI.Ollama.APIKey = %q, want ol-test-key", cfg.AI.Ollama.APIKey)
	}
	if cfg.AI.Ollama.Model != "llama3:8b" {
		t.Errorf("AI.Ollama.Model = %q, want llama3:8b", cfg.AI.Ollama.Model)
	}
	if cfg.Generation.MaxAttempts != 3 {
		t.Errorf("Generation.MaxAttempts = %d, want 3", cfg.Generation.MaxAttempts)
	}
	if cfg.Generation.RetryBackoff != 250*time.Millisecond {
		t.Errorf("Generation.RetryBackoff = %v, want 250ms", cfg.Generation.RetryBackoff)
	}
	if cfg.Cache.URL != "redis://localhost:6379" {
		t.Errorf("Cache.URL = %q, want redis://localhost:6379", cfg.Cache.URL)
	}
}

func TestLoad_OllamaKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_API_KEY", "legacy-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AI.Ollama.APIKey != "legacy-key" {
		t.Errorf("AI.Ollama.APIKey = %q, want legacy-key", cfg.AI.Ollama.APIKey)
	}
}

func TestValidate_MissingCredential(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Hosted Ollama is the default and it needs a key.
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() should return error when no credential is configured")
	}
}

func TestValidate_LocalOllamaNeedsNoKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUIZ_AI_OLLAMA_URL", "http://localhost:11434")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v; local Ollama should not require a key", err)
	}
}

func TestValidate_BadBounds(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUIZ_AI_OLLAMA_API_KEY", "k")
	t.Setenv("QUIZ_GEN_MIN_QUESTIONS", "10")
	t.Setenv("QUIZ_GEN_MAX_QUESTIONS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() should reject min > max question bounds")
	}
}

func TestHasAIProvider(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		want   bool
	}{
		{"none", "", "", false},
		{"ollama key", "QUIZ_AI_OLLAMA_API_KEY", "ol-test", true},
		{"openai key", "QUIZ_AI_OPENAI_API_KEY", "sk-test", true},
		{"local ollama", "QUIZ_AI_OLLAMA_URL", "http://localhost:11434", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.envKey != "" {
				t.Setenv(tt.envKey, tt.envVal)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.HasAIProvider() != tt.want {
				t.Errorf("HasAIProvider() = %v, want %v", cfg.HasAIProvider(), tt.want)
			}
		})
	}
}

func TestHasAIProvider_OllamaDisabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUIZ_AI_OLLAMA_ENABLED", "false")
	t.Setenv("QUIZ_AI_OLLAMA_API_KEY", "ol-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HasAIProvider() {
		t.Error("HasAIProvider() = true with Ollama disabled and no other provider")
	}
}
