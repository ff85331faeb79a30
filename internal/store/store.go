package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Storage is a TTL key/value cache shared by the threat detector and the
// authentication orchestrator (suspicious-IP flags, the scan lock).
// Durable state never lives here.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, val string, expiresIn time.Duration) error
	// SetNX sets key only if it does not exist and reports whether the
	// write happened. Used as a best-effort distributed lock.
	SetNX(ctx context.Context, key string, val string, expiresIn time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

type prefixedStorage struct {
	underlying Storage
	prefix     string
}

func (p *prefixedStorage) Get(ctx context.Context, key string) (string, error) {
	return p.underlying.Get(ctx, p.prefix+key)
}

func (p *prefixedStorage) Set(ctx context.Context, key string, val string, expiresIn time.Duration) error {
	return p.underlying.Set(ctx, p.prefix+key, val, expiresIn)
}

func (p *prefixedStorage) SetNX(ctx context.Context, key string, val string, expiresIn time.Duration) (bool, error) {
	return p.underlying.SetNX(ctx, p.prefix+key, val, expiresIn)
}

func (p *prefixedStorage) Delete(ctx context.Context, key string) error {
	return p.underlying.Delete(ctx, p.prefix+key)
}

func StorageWithPrefix(storage Storage, prefix string) Storage {
	return &prefixedStorage{
		underlying: storage,
		prefix:     prefix,
	}
}
