package services

import (
	"context"
	"sort"

	"alfredoptarigan/cv-ranker/internal/models"
)

// VectorStore holds chunk vectors scoped by session. Implementations must
// never return a match from a session other than the one queried.
type VectorStore interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, sessionID, candidateID string, chunks []models.Chunk) error
	Query(ctx context.Context, sessionID string, vector []float32, topK int) ([]models.ChunkMatch, error)
	Purge(ctx context.Context, sessionID string) error
}

type scoredMatch struct {
	match models.ChunkMatch
	seq   int64
}

// sortMatches orders by similarity, then by upsert recency.
func sortMatches(matches []scoredMatch) []models.ChunkMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].match.Similarity != matches[j].match.Similarity {
			return matches[i].match.Similarity > matches[j].match.Similarity
		}
		return matches[i].seq > matches[j].seq
	})

	out := make([]models.ChunkMatch, len(matches))
	for i, m := range matches {
		out[i] = m.match
	}
	return out
}
