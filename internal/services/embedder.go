package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/logger"
)

// Embedder adapts the embedding service to the vector store dimension.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

type embedder struct {
	service   EmbeddingService
	dimension int
	log       *zap.Logger
}

func NewEmbedder(service EmbeddingService, dimension int, log *zap.Logger) Embedder {
	return &embedder{
		service:   service,
		dimension: dimension,
		log:       logger.OrNop(log),
	}
}

// EmbedText implements Embedder. Vectors longer than the store dimension
// are truncated and logged; shorter ones are rejected since padding would
// invent components.
func (e *embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.service.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbeddingServiceUnavailable)
	}

	switch {
	case len(vector) > e.dimension:
		e.log.Warn("⚠️ Embedding truncated to store dimension, similarity is approximate",
			zap.Error(ErrEmbeddingDimensionMismatch),
			zap.Int("got", len(vector)),
			zap.Int("want", e.dimension),
		)
		truncated := make([]float32, e.dimension)
		copy(truncated, vector)
		return truncated, nil
	case len(vector) < e.dimension:
		return nil, fmt.Errorf("%w: got %d components, store expects %d", ErrEmbeddingDimensionMismatch, len(vector), e.dimension)
	}

	return vector, nil
}
