package storage

import (
	"context"
	"errors"
	"fmt"

	"websift/internal/models"
	"websift/internal/util"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

type PageRepo struct {
	db *DB
}

func NewPageRepo(db *DB) *PageRepo {
	return &PageRepo{db: db}
}

func (r *PageRepo) PageExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pages WHERE url=$1)`, url).Scan(&exists)
	if err != nil {
		return false, util.StorageError("check page exists", err)
	}
	return exists, nil
}

// SaveIngested writes the page, its chunk rows and the queue removal in one
// transaction. A url conflict on insert reports util.ErrDuplicate and leaves
// nothing behind.
func (r *PageRepo) SaveIngested(ctx context.Context, p models.Page, chunks []models.Chunk) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return util.StorageError("begin tx save page", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var id string
	err = tx.QueryRow(ctx, `
INSERT INTO pages (id, url, title, description, embedding, added_by, created_at, date)
VALUES ($1::uuid, $2, $3, $4, $5, $6, NOW(), CURRENT_DATE)
ON CONFLICT (url) DO NOTHING
RETURNING id::text`,
		p.ID, p.URL, p.Title, p.Description, pgvector.NewVector(p.DocumentEmbedding), p.AddedBy,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("insert page %s: %w", p.URL, util.ErrDuplicate)
	}
	if err != nil {
		return util.StorageError("insert page", err)
	}

	if err := insertChunks(ctx, tx, id, chunks); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM queue WHERE url=$1`, p.URL); err != nil {
		return util.StorageError("dequeue "+p.URL, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return util.StorageError("commit page tx", err)
	}
	return nil
}
