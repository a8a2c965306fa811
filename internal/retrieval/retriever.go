// Package retrieval obtiene pasajes de contexto para una consulta. Los
// pasajes son opacos: no se interpretan ni se validan.
package retrieval

import (
	"context"

	"rag-chat/internal/domain"
)

const DefaultTopK = 5

// Retriever devuelve hasta topK pasajes ordenados por relevancia.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.Context, error)
}
