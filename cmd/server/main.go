package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/quizforge/quizforge/internal/ai"
	"github.com/quizforge/quizforge/internal/material"
	"github.com/quizforge/quizforge/internal/platform/cache"
	"github.com/quizforge/quizforge/internal/platform/config"
	"github.com/quizforge/quizforge/internal/quiz"
	"github.com/quizforge/quizforge/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := material.NewStore(cfg.Corpus.Path)
	if err != nil {
		logger.Error("failed to open corpus", "path", cfg.Corpus.Path, "error", err)
		os.Exit(1)
	}

	router := newAIRouter(cfg.AI)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var sessionStore session.Store = session.NewMemoryStore()
	var redisCache *cache.Cache
	if cfg.Cache.URL != "" {
		redisCache, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			logger.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		sessionStore = session.NewRedisStore(redisCache, cfg.Cache.SeenTTL)
		logger.Info("using cache-backed session store")
	} else {
		logger.Info("cache disabled, using in-memory session store")
	}

	secret, err := sessionKey(cfg.Session.Secret)
	if err != nil {
		logger.Error("failed to derive session key", "error", err)
		os.Exit(1)
	}
	if cfg.Session.Secret == "" {
		// Random per-process key: cookies stop verifying after a restart.
		logger.Warn("QUIZ_SESSION_SECRET not set, sessions will not survive restarts")
	}
	cookies := sessions.NewCookieStore(secret)
	cookies.Options.HttpOnly = true
	cookies.Options.SameSite = http.SameSiteLaxMode

	srv := &server{
		store:     store,
		generator: quiz.NewGenerator(store, router, cfg.Generation, logger),
		router:    router,
		sessions:  sessionStore,
		cookies:   cookies,
		cache:     redisCache,
		logger:    logger,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.newMux(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // generation runs span several model calls
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// newAIRouter registers the configured model providers in fallback order.
func newAIRouter(cfg config.AIConfig) *ai.Router {
	router := ai.NewRouter()
	if cfg.Ollama.Enabled {
		opts := []ai.OllamaOption{ai.WithOllamaModel(cfg.Ollama.Model)}
		if cfg.Ollama.APIKey != "" {
			opts = append(opts, ai.WithOllamaAPIKey(cfg.Ollama.APIKey))
		}
		router.Register("ollama", ai.NewOllamaProvider(cfg.Ollama.URL, opts...))
	}
	if cfg.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.OpenAI.APIKey,
			ai.WithOpenAIModel(cfg.OpenAI.Model)))
	}
	return router
}

// sessionKey returns the cookie signing key: the configured secret, or a
// random per-process key. GenerateRandomKey returns nil when the entropy
// source fails; a nil key would mint a store that can never sign a cookie.
func sessionKey(secret string) ([]byte, error) {
	if secret != "" {
		return []byte(secret), nil
	}
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return nil, fmt.Errorf("no entropy available for session key")
	}
	return key, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
