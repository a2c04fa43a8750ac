// Package blob stores chunk text under content keys in an object-storage
// bucket or a local directory.
package blob

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"websift/internal/config"
)

var ErrNotFound = errors.New("blob not found")

type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Open builds the store selected by cfg.BlobBackend.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.BlobBackend {
	case "s3":
		return NewS3Store(ctx, S3Options{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			Bucket:          cfg.BlobBucket,
		})
	case "fs":
		return NewFSStore(cfg.BlobRoot, cfg.BlobBucket)
	default:
		return nil, fmt.Errorf("unsupported blob backend %q", cfg.BlobBackend)
	}
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	objs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objs: map[string][]byte{}}
}

func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("put blob: empty key")
	}
	cp := append([]byte(nil), data...)
	m.mu.Lock()
	m.objs[key] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objs[key]
	if !ok {
		return nil, fmt.Errorf("get blob %s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objs)
}
