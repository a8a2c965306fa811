package repository

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"rag-chat/internal/domain"
)

// PassageRepository busca pasajes indexados por similitud de embedding.
type PassageRepository interface {
	Search(ctx context.Context, queryEmbedding pgvector.Vector, k int) ([]domain.Context, error)
}

type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PgPassageRepository struct {
	pool pgQuerier
}

func NewPgPassageRepository(pool pgQuerier) *PgPassageRepository {
	return &PgPassageRepository{pool: pool}
}

func (r *PgPassageRepository) Search(ctx context.Context, queryEmbedding pgvector.Vector, k int) ([]domain.Context, error) {
	if k <= 0 {
		k = 5
	}
	const query = `
		SELECT text, source, title
		FROM passages
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, queryEmbedding, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPassages(rows)
}

func scanPassages(rows pgxRows) ([]domain.Context, error) {
	passages := []domain.Context{}
	for rows.Next() {
		var p domain.Context
		var source, title sql.NullString
		if err := rows.Scan(&p.Text, &source, &title); err != nil {
			return nil, err
		}
		p.Source = source.String
		p.Title = title.String
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return passages, nil
}

// pgxRows is a minimal interface to allow scanning from pgx rows and simplify testing.
type pgxRows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}
