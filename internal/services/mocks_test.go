package services

import (
	"context"
	"hash/fnv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"alfredoptarigan/cv-ranker/internal/models"
	"alfredoptarigan/cv-ranker/internal/repositories"
)

type MockCompletion struct{ mock.Mock }

func (m *MockCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type MockEmbeddingService struct{ mock.Mock }

func (m *MockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// fakeCompletion answers by prompt kind so the pipeline can run without a model.
type fakeCompletion struct {
	job       func() (string, error)
	candidate func(prompt string) (string, error)
	explain   func(ctx context.Context) (string, error)
	calls     atomic.Int32
}

func (f *fakeCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch {
	case strings.Contains(prompt, "JOB DESCRIPTION:"):
		return f.job()
	case strings.Contains(prompt, "CANDIDATE CV:"):
		return f.candidate(prompt)
	default:
		if f.explain == nil {
			return "Solid match for the role.", nil
		}
		return f.explain(ctx)
	}
}

// bagOfWordsEmbedding hashes words into a small fixed vector.
type bagOfWordsEmbedding struct {
	dim int
}

func (b bagOfWordsEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	vector := make([]float32, b.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vector[h.Sum32()%uint32(b.dim)]++
	}
	return vector, nil
}

// textNormalizer treats the payload as already extracted text.
type textNormalizer struct{}

func (textNormalizer) Normalize(data []byte, format models.DocumentFormat) (string, error) {
	text := CleanText(string(data))
	if text == "" || text == "corrupt" {
		return "", ErrCorruptDocument
	}
	return text, nil
}

type failingStore struct {
	VectorStore
	err error
}

func (f failingStore) Upsert(ctx context.Context, sessionID, candidateID string, chunks []models.Chunk) error {
	return f.err
}

type MockSessionRepository struct{ mock.Mock }

func (m *MockSessionRepository) Create(session *models.RankingSession) error {
	return m.Called(session).Error(0)
}

func (m *MockSessionRepository) FindByID(id uuid.UUID) (*models.RankingSession, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RankingSession), args.Error(1)
}

func (m *MockSessionRepository) UpdateStatus(id uuid.UUID, status models.SessionStatus) error {
	return m.Called(id, status).Error(0)
}

func (m *MockSessionRepository) SaveResult(id uuid.UUID, result *repositories.SessionResultData) error {
	return m.Called(id, result).Error(0)
}

func (m *MockSessionRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	return m.Called(id, errorMsg).Error(0)
}

func (m *MockSessionRepository) FindExpired(before time.Time, limit int) ([]models.RankingSession, error) {
	args := m.Called(before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RankingSession), args.Error(1)
}

func (m *MockSessionRepository) Delete(id uuid.UUID) error {
	return m.Called(id).Error(0)
}
