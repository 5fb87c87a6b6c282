// Package cache holds rendered responses for a short time. Entries expire by
// age only; writes to the content never invalidate them.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

var ErrMiss = errors.New("cache miss")

// Entry is a serialized response.
type Entry struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type Store interface {
	// Get returns ErrMiss for absent or expired keys.
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Key hashes a request URI (path and query) into a cache key.
func Key(uri string) string {
	return fmt.Sprintf("page:%016x", xxhash.Sum64String(uri))
}

// NewStore returns the configured backend. A redis backend that cannot be
// reached at startup falls back to memory.
func NewStore(backend, redisAddr string, logger *zap.SugaredLogger) Store {
	if backend != "redis" {
		return NewMemoryStore()
	}

	store, err := NewRedisStore(redisAddr)
	if err != nil {
		logger.Warnw("Redis unavailable; using in-memory page cache", "addr", redisAddr, "error", err)
		return NewMemoryStore()
	}
	return store
}

type memoryItem struct {
	entry   Entry
	expires time.Time
}

type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	if !s.now().Before(item.expires) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur.expires.Equal(item.expires) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, ErrMiss
	}

	entry := item.entry
	return &entry, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, entry *Entry, ttl time.Duration) error {
	body := make([]byte, len(entry.Body))
	copy(body, entry.Body)

	s.mu.Lock()
	s.items[key] = memoryItem{
		entry:   Entry{ContentType: entry.ContentType, Body: body},
		expires: s.now().Add(ttl),
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.items = make(map[string]memoryItem)
	s.mu.Unlock()
	return nil
}
