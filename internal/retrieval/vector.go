package retrieval

import (
	"context"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"

	"rag-chat/internal/domain"
	"rag-chat/internal/repository"
)

// Embedder convierte texto en un vector.
type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorRetriever busca en la tabla de pasajes de postgres por similitud coseno.
type VectorRetriever struct {
	embedder Embedder
	passages repository.PassageRepository
}

func NewVectorRetriever(embedder Embedder, passages repository.PassageRepository) *VectorRetriever {
	return &VectorRetriever{embedder: embedder, passages: passages}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.Context, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	embed, err := r.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	out, err := r.passages.Search(ctx, pgvector.NewVector(embed), topK)
	if err != nil {
		return nil, fmt.Errorf("search passages: %w", err)
	}
	return out, nil
}
