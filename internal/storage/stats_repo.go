package storage

import (
	"context"

	"websift/internal/models"
	"websift/internal/util"
)

type StatsRepo struct {
	db *DB
}

func NewStatsRepo(db *DB) *StatsRepo {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) Stats(ctx context.Context) (models.Stats, error) {
	var s models.Stats
	err := r.db.Pool.QueryRow(ctx, `
SELECT (SELECT COUNT(*) FROM pages),
       (SELECT COUNT(*) FROM chunks),
       (SELECT COUNT(*) FROM requests),
       (SELECT COUNT(*) FROM queue)`).Scan(&s.Pages, &s.Chunks, &s.Requests, &s.Queued)
	if err != nil {
		return models.Stats{}, util.StorageError("read stats", err)
	}
	return s, nil
}
