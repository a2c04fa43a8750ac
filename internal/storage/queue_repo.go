package storage

import (
	"context"

	"websift/internal/models"
	"websift/internal/util"
)

type QueueRepo struct {
	db *DB
}

func NewQueueRepo(db *DB) *QueueRepo {
	return &QueueRepo{db: db}
}

// Enqueue records url as in flight. A leftover entry from an earlier failed
// attempt is refreshed rather than duplicated.
func (r *QueueRepo) Enqueue(ctx context.Context, url, addedBy string) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO queue (url, added_by, created_at)
VALUES ($1, $2, NOW())
ON CONFLICT (url) DO UPDATE SET added_by = EXCLUDED.added_by, created_at = NOW()`, url, addedBy)
	if err != nil {
		return util.StorageError("enqueue "+url, err)
	}
	return nil
}

func (r *QueueRepo) ListQueue(ctx context.Context, limit int) ([]models.QueueEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Pool.Query(ctx, `SELECT url, added_by, created_at FROM queue ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, util.StorageError("list queue", err)
	}
	defer rows.Close()
	out := make([]models.QueueEntry, 0)
	for rows.Next() {
		var e models.QueueEntry
		if err := rows.Scan(&e.URL, &e.AddedBy, &e.CreatedAt); err != nil {
			return nil, util.StorageError("scan queue entry", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, util.StorageError("iterate queue", err)
	}
	return out, nil
}
