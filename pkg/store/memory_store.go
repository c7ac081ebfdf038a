package store

import (
	"context"

	"github.com/patrickmn/go-cache"
)

type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore keeps values for the life of the process. Nothing expires,
// so the janitor is disabled.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	if x, found := s.cache.Get(key); found {
		return x.(string), nil
	}
	return "", ErrNotFound
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	items := s.cache.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	return keys, nil
}
