package store

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/storage/memory/v2"
)

// MemoryStorage backs the cache with an in-process store. Used when no
// redis is configured; fine for a single instance, the scan lock is then
// only advisory within the process.
type MemoryStorage struct {
	mu  sync.Mutex
	mem *memory.Storage
}

func (s *MemoryStorage) Get(ctx context.Context, key string) (string, error) {
	val, err := s.mem.Get(key)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", ErrNotFound
	}
	return string(val), nil
}

func (s *MemoryStorage) Set(ctx context.Context, key string, val string, expiresIn time.Duration) error {
	return s.mem.Set(key, []byte(val), expiresIn)
}

func (s *MemoryStorage) SetNX(ctx context.Context, key string, val string, expiresIn time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.mem.Get(key)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	return true, s.mem.Set(key, []byte(val), expiresIn)
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	return s.mem.Delete(key)
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		mem: memory.New(),
	}
}
