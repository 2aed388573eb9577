// Package retrieval implements concurrent per-query vector search, chunk
// deduplication, and reciprocal rank fusion across query variants.
package retrieval

import (
	"context"

	"ragcore/internal/ragtype"
)

// VectorStore is the retrieval collaborator; the storage engine itself is
// external, only this search view is specified.
type VectorStore interface {
	Search(ctx context.Context, embedding []float32, tenantID string, topK int) ([]ragtype.Chunk, error)
}

// EmbeddingService embeds a single string.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
