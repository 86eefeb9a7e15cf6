// Package session tracks which question fingerprints each browser session has
// already received, so repeated quiz requests keep producing fresh questions.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quizforge/quizforge/internal/platform/cache"
	"github.com/quizforge/quizforge/internal/quiz"
)

// Store resolves a per-session seen-question set and supports clearing it.
type Store interface {
	// Seen returns the seen set for the session, creating it on first use.
	Seen(ctx context.Context, sessionID string) quiz.SeenSet
	// Reset drops everything recorded for the session.
	Reset(ctx context.Context, sessionID string) error
}

// MemoryStore keeps seen sets in process memory. State is lost on restart,
// which matches the session-scoped lifetime of the data.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string]map[string]struct{})}
}

func (s *MemoryStore) Seen(_ context.Context, sessionID string) quiz.SeenSet {
	return &memorySeen{store: s, sessionID: sessionID}
}

func (s *MemoryStore) Reset(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets, sessionID)
	return nil
}

type memorySeen struct {
	store     *MemoryStore
	sessionID string
}

func (m *memorySeen) Contains(fp string) (bool, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	set, ok := m.store.sets[m.sessionID]
	if !ok {
		return false, nil
	}
	_, seen := set[fp]
	return seen, nil
}

func (m *memorySeen) Add(fp string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	set, ok := m.store.sets[m.sessionID]
	if !ok {
		set = make(map[string]struct{})
		m.store.sets[m.sessionID] = set
	}
	set[fp] = struct{}{}
	return nil
}

// RedisStore keeps seen sets in Redis, one set per session with a sliding
// TTL, so fingerprints survive process restarts and are shared between
// replicas.
type RedisStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewRedisStore(c *cache.Cache, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: c, ttl: ttl}
}

func (s *RedisStore) Seen(ctx context.Context, sessionID string) quiz.SeenSet {
	return &redisSeen{ctx: ctx, store: s, key: seenKey(sessionID)}
}

func (s *RedisStore) Reset(ctx context.Context, sessionID string) error {
	if err := s.cache.Client.Del(ctx, seenKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("resetting session %s: %w", sessionID, err)
	}
	return nil
}

func seenKey(sessionID string) string {
	return "quiz:seen:" + sessionID
}

// redisSeen binds a session's set to the request context it was resolved in.
type redisSeen struct {
	ctx   context.Context
	store *RedisStore
	key   string
}

func (r *redisSeen) Contains(fp string) (bool, error) {
	seen, err := r.store.cache.Client.SIsMember(r.ctx, r.key, fp).Result()
	if err != nil {
		return false, fmt.Errorf("seen lookup: %w", err)
	}
	return seen, nil
}

func (r *redisSeen) Add(fp string) error {
	pipe := r.store.cache.Client.TxPipeline()
	pipe.SAdd(r.ctx, r.key, fp)
	if r.store.ttl > 0 {
		pipe.Expire(r.ctx, r.key, r.store.ttl)
	}
	if _, err := pipe.Exec(r.ctx); err != nil {
		return fmt.Errorf("seen update: %w", err)
	}
	return nil
}
