// Package kvstore provides error-contained access to a persistent key-value
// backend with an in-memory fallback. Callers never see storage failures;
// when the backend is unavailable the store keeps working in degraded,
// memory-only mode.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"grana/internal/logger"
)

// ErrNoKey is returned by a Backend when a key does not exist.
var ErrNoKey = errors.New("kvstore: key not found")

// Backend is a minimal persistent string store.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

const (
	probeKey  = "__grana_probe__"
	opTimeout = 5 * time.Second
)

// Store wraps a Backend with error containment and an in-memory fallback.
// Availability is probed once at construction and never re-checked per call.
type Store struct {
	backend    Backend
	persistent bool

	mu  sync.RWMutex
	mem map[string]string

	log *zap.SugaredLogger
}

// New creates a Store over the given backend. A disposable probe write/delete
// decides once whether the backend is usable; on failure the store degrades
// to memory-only mode.
func New(backend Backend) *Store {
	s := &Store{
		backend: backend,
		mem:     make(map[string]string),
		log:     logger.Named("kvstore"),
	}

	if backend == nil {
		s.log.Warn("no backend configured, running memory-only")
		return s
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := backend.Set(ctx, probeKey, "1"); err != nil {
		s.log.Warnw("backend unavailable, running memory-only", "error", err)
		return s
	}
	if err := backend.Del(ctx, probeKey); err != nil {
		s.log.Warnw("backend probe cleanup failed, running memory-only", "error", err)
		return s
	}

	s.persistent = true
	return s
}

// NewMemory creates a memory-only Store, useful for tests.
func NewMemory() *Store {
	return New(nil)
}

// Persistent reports whether the backing store survived the construction probe.
func (s *Store) Persistent() bool { return s.persistent }

// Get returns the value for key, or def when the key is absent or the
// backend fails. It never returns an error.
func (s *Store) Get(key, def string) string {
	if s.persistent {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		v, err := s.backend.Get(ctx, key)
		if err == nil {
			return v
		}
		if !errors.Is(err, ErrNoKey) {
			s.log.Warnw("get failed, falling back to memory", "key", key, "error", err)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.mem[key]; ok {
		return v
	}
	return def
}

// Set stores the value under key. On backend failure the value is kept in
// the memory fallback instead, so a true return means the value is readable
// through this Store even if not durably persisted.
func (s *Store) Set(key, value string) bool {
	if s.persistent {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		if err := s.backend.Set(ctx, key, value); err == nil {
			// Drop any stale memory shadow of this key.
			s.mu.Lock()
			delete(s.mem, key)
			s.mu.Unlock()
			return true
		} else {
			s.log.Warnw("set failed, keeping value in memory", "key", key, "error", err)
		}
	}

	s.mu.Lock()
	s.mem[key] = value
	s.mu.Unlock()
	return true
}

// Remove deletes the key from both the backend and the memory fallback.
func (s *Store) Remove(key string) bool {
	ok := true
	if s.persistent {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		if err := s.backend.Del(ctx, key); err != nil && !errors.Is(err, ErrNoKey) {
			s.log.Warnw("remove failed", "key", key, "error", err)
			ok = false
		}
	}

	s.mu.Lock()
	delete(s.mem, key)
	s.mu.Unlock()
	return ok
}

// Has reports whether the key exists.
func (s *Store) Has(key string) bool {
	const missing = "\x00kvstore-missing"
	return s.Get(key, missing) != missing
}

// Clear removes every key.
func (s *Store) Clear() bool {
	ok := true
	if s.persistent {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		if err := s.backend.Clear(ctx); err != nil {
			s.log.Warnw("clear failed", "error", err)
			ok = false
		}
	}

	s.mu.Lock()
	s.mem = make(map[string]string)
	s.mu.Unlock()
	return ok
}

// GetJSON decodes the JSON value stored under key into out. It returns false
// and leaves out untouched when the key is absent or the value is malformed,
// so callers keep whatever default out already holds.
func (s *Store) GetJSON(key string, out interface{}) bool {
	raw := s.Get(key, "")
	if raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.log.Warnw("stored value is not valid JSON, keeping default", "key", key, "error", err)
		return false
	}
	return true
}

// SetJSON encodes v as JSON and stores it under key. Unencodable values are
// logged and dropped rather than propagated as errors.
func (s *Store) SetJSON(key string, v interface{}) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Warnw("value cannot be encoded as JSON, not stored", "key", key, "error", err)
		return false
	}
	return s.Set(key, string(raw))
}
