package services

import (
	"context"
	"fmt"
	"math"
	"sync"

	"alfredoptarigan/cv-ranker/internal/models"
)

type memoryPoint struct {
	candidateID string
	chunkIndex  int
	vector      []float32
	seq         int64
}

type memoryStore struct {
	mu       sync.RWMutex
	seq      int64
	sessions map[string]map[string]memoryPoint
}

// NewMemoryStore returns an in-process VectorStore for local runs and tests.
func NewMemoryStore() VectorStore {
	return &memoryStore{
		sessions: make(map[string]map[string]memoryPoint),
	}
}

func (m *memoryStore) EnsureCollection(ctx context.Context) error {
	return nil
}

func (m *memoryStore) Upsert(ctx context.Context, sessionID, candidateID string, chunks []models.Chunk) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrVectorStoreUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	points, ok := m.sessions[sessionID]
	if !ok {
		points = make(map[string]memoryPoint)
		m.sessions[sessionID] = points
	}

	for _, chunk := range chunks {
		m.seq++
		vector := make([]float32, len(chunk.Embedding))
		copy(vector, chunk.Embedding)
		points[fmt.Sprintf("%s/%d", candidateID, chunk.ChunkIndex)] = memoryPoint{
			candidateID: candidateID,
			chunkIndex:  chunk.ChunkIndex,
			vector:      vector,
			seq:         m.seq,
		}
	}

	return nil
}

func (m *memoryStore) Query(ctx context.Context, sessionID string, vector []float32, topK int) ([]models.ChunkMatch, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidParameter, topK)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVectorStoreUnavailable, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	points := m.sessions[sessionID]
	matches := make([]scoredMatch, 0, len(points))
	for _, p := range points {
		matches = append(matches, scoredMatch{
			match: models.ChunkMatch{
				CandidateID: p.candidateID,
				ChunkIndex:  p.chunkIndex,
				Similarity:  cosine(vector, p.vector),
			},
			seq: p.seq,
		})
	}

	sorted := sortMatches(matches)
	if len(sorted) > topK {
		sorted = sorted[:topK]
	}
	return sorted, nil
}

func (m *memoryStore) Purge(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
