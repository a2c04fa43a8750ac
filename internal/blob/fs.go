package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"websift/internal/util"
)

// FSStore keeps one file per key under root/bucket.
type FSStore struct {
	dir string
}

func NewFSStore(root, bucket string) (*FSStore, error) {
	dir := filepath.Join(root, filepath.Base(bucket))
	if err := util.EnsureDir(dir); err != nil {
		return nil, util.StorageError("open blob dir", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	_ = ctx
	if key == "" {
		return fmt.Errorf("put blob: empty key")
	}
	if err := util.WriteFileAtomic(util.SafeJoin(s.dir, key), data); err != nil {
		return util.StorageError("put blob "+key, err)
	}
	return nil
}

func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	_ = ctx
	b, err := os.ReadFile(util.SafeJoin(s.dir, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("get blob %s: %w", key, ErrNotFound)
		}
		return nil, util.StorageError("get blob "+key, err)
	}
	return b, nil
}
