package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/models"
)

const (
	payloadSessionID   = "session_id"
	payloadCandidateID = "candidate_id"
	payloadChunkIndex  = "chunk_index"
	payloadText        = "text"
	payloadSeq         = "seq"
)

// pointNamespace derives stable point IDs so re-upserting a chunk replaces it.
var pointNamespace = uuid.MustParse("6f1c2a52-3c1e-4d59-9a43-0f8e2f6b7d10")

type qdrantStore struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	log            *zap.Logger
}

func NewQdrantStore(urlStr, apiKey, collectionName string, vectorSize int, log *zap.Logger) (VectorStore, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantStore{
		client:         client,
		collectionName: collectionName,
		vectorSize:     uint64(vectorSize),
		log:            logger.OrNop(log),
	}, nil
}

// EnsureCollection implements VectorStore.
func (q *qdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("%w: failed to check collection: %w", ErrVectorStoreUnavailable, err)
	}

	if exists {
		q.log.Info("✅ Collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create collection: %w", ErrVectorStoreUnavailable, err)
	}

	_, err = q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: q.collectionName,
		FieldName:      payloadSessionID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to index %s: %w", ErrVectorStoreUnavailable, payloadSessionID, err)
	}

	q.log.Info("✅ Qdrant collection created", zap.String("collection", q.collectionName), zap.Uint64("vector_size", q.vectorSize))
	return nil
}

func pointID(sessionID, candidateID string, chunkIndex int) string {
	key := sessionID + "/" + candidateID + "/" + strconv.Itoa(chunkIndex)
	return uuid.NewSHA1(pointNamespace, []byte(key)).String()
}

// Upsert implements VectorStore.
func (q *qdrantStore) Upsert(ctx context.Context, sessionID, candidateID string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	seq := time.Now().UnixNano()
	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(sessionID, candidateID, chunk.ChunkIndex)),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadSessionID:   sessionID,
				payloadCandidateID: candidateID,
				payloadChunkIndex:  chunk.ChunkIndex,
				payloadText:        chunk.Text,
				payloadSeq:         seq + int64(i),
			}),
		})
	}

	// Wait so a following query sees every point.
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to upsert points: %w", ErrVectorStoreUnavailable, err)
	}

	return nil
}

// Query implements VectorStore.
func (q *qdrantStore) Query(ctx context.Context, sessionID string, vector []float32, topK int) ([]models.ChunkMatch, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidParameter, topK)
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(payloadSessionID, sessionID),
			},
		},
		Limit:       qdrant.PtrOf(uint64(topK)),
		WithPayload: qdrant.NewWithPayloadInclude(payloadSessionID, payloadCandidateID, payloadChunkIndex, payloadSeq),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search: %w", ErrVectorStoreUnavailable, err)
	}

	matches := make([]scoredMatch, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()

		if payload[payloadSessionID].GetStringValue() != sessionID {
			q.log.Error("❌ Qdrant returned a point from another session", zap.String("session_id", sessionID))
			continue
		}

		matches = append(matches, scoredMatch{
			match: models.ChunkMatch{
				CandidateID: payload[payloadCandidateID].GetStringValue(),
				ChunkIndex:  int(payload[payloadChunkIndex].GetIntegerValue()),
				Similarity:  point.GetScore(),
			},
			seq: payload[payloadSeq].GetIntegerValue(),
		})
	}

	return sortMatches(matches), nil
}

// Purge implements VectorStore.
func (q *qdrantStore) Purge(ctx context.Context, sessionID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch(payloadSessionID, sessionID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to purge session: %w", ErrVectorStoreUnavailable, err)
	}

	return nil
}
