package vector

import (
	"context"
	"fmt"

	"websift/internal/models"
	"websift/internal/util"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// Direction orders candidates by cosine distance to the query vector.
type Direction int

const (
	// Nearest returns the most similar rows first.
	Nearest Direction = iota
	// Farthest returns the least similar rows first.
	Farthest
)

func (d Direction) sql() string {
	if d == Farthest {
		return "DESC"
	}
	return "ASC"
}

type Searcher struct {
	q Queryer
}

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func NewSearcher(q Queryer) *Searcher {
	return &Searcher{q: q}
}

// Chunks returns the pages owning the k chunks closest to (or farthest from)
// vec, one entry per chunk, in distance order.
func (s *Searcher) Chunks(ctx context.Context, vec []float32, k int, dir Direction) ([]models.PageRef, error) {
	query := `
SELECT p.id::text, p.url, p.title
FROM chunks c
JOIN pages p ON p.id = c.page_id
ORDER BY c.embedding <=> $1::vector ` + dir.sql() + `
LIMIT $2`
	return s.refs(ctx, "chunks", query, vec, k)
}

// Pages returns the k pages whose document embedding is closest to vec.
func (s *Searcher) Pages(ctx context.Context, vec []float32, k int) ([]models.PageRef, error) {
	query := `
SELECT p.id::text, p.url, p.title
FROM pages p
ORDER BY p.embedding <=> $1::vector ASC
LIMIT $2`
	return s.refs(ctx, "pages", query, vec, k)
}

func (s *Searcher) refs(ctx context.Context, index, query string, vec []float32, k int) ([]models.PageRef, error) {
	if k <= 0 {
		k = 10
	}
	rows, err := s.q.Query(ctx, query, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, util.StorageError(fmt.Sprintf("query %s vector search", index), err)
	}
	defer rows.Close()

	out := make([]models.PageRef, 0, k)
	for rows.Next() {
		var r models.PageRef
		if err := rows.Scan(&r.ID, &r.URL, &r.Title); err != nil {
			return nil, util.StorageError("scan "+index+" result", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, util.StorageError("iterate "+index+" rows", err)
	}
	return out, nil
}
