package storage

import (
	"context"

	"websift/internal/models"
	"websift/internal/util"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

func insertChunks(ctx context.Context, tx pgx.Tx, pageID string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(`INSERT INTO chunks (page_id, content_id, embedding) VALUES ($1::uuid, $2, $3)`,
			pageID, c.ContentID, pgvector.NewVector(c.Embedding))
	}
	br := tx.SendBatch(ctx, batch)
	for _, c := range chunks {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return util.StorageError("insert chunk "+c.ContentID, err)
		}
	}
	if err := br.Close(); err != nil {
		return util.StorageError("close chunk batch", err)
	}
	return nil
}

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ChunkExists reports whether contentID names a stored chunk row.
func (r *ChunkRepo) ChunkExists(ctx context.Context, contentID string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM chunks WHERE content_id=$1)`, contentID).Scan(&exists)
	if err != nil {
		return false, util.StorageError("check chunk exists", err)
	}
	return exists, nil
}
