package storage

import (
	"context"

	"websift/internal/models"
	"websift/internal/util"
)

type RequestRepo struct {
	db *DB
}

func NewRequestRepo(db *DB) *RequestRepo {
	return &RequestRepo{db: db}
}

func (r *RequestRepo) LogRequest(ctx context.Context, content string, typ models.QueryType, userID string) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO requests (content, type, user_id, created_at)
VALUES ($1, $2, NULLIF($3,''), NOW())`, content, string(typ), userID)
	if err != nil {
		return util.StorageError("log request", err)
	}
	return nil
}
