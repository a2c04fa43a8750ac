package storage

import (
	"context"

	"websift/internal/util"
)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) UserExists(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id::text=$1)`, userID).Scan(&exists)
	if err != nil {
		return false, util.StorageError("check user exists", err)
	}
	return exists, nil
}

func (r *UserRepo) InsertSuggestion(ctx context.Context, url string) error {
	if _, err := r.db.Pool.Exec(ctx, `INSERT INTO suggestions (url, created_at) VALUES ($1, NOW())`, url); err != nil {
		return util.StorageError("insert suggestion", err)
	}
	return nil
}
