package handlers

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"alfredoptarigan/cv-ranker/internal/models"
	"alfredoptarigan/cv-ranker/internal/repositories"
	"alfredoptarigan/cv-ranker/internal/services"
)

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

type MockDocumentRepository struct{ mock.Mock }

func (m *MockDocumentRepository) Create(document *models.Document) error {
	return m.Called(document).Error(0)
}

func (m *MockDocumentRepository) FindByID(id uuid.UUID) (*models.Document, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindBySession(sessionID uuid.UUID) ([]models.Document, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Document), args.Error(1)
}

// fakeRanking hands the request to rank and counts calls.
type fakeRanking struct {
	rank  func(req services.RankingRequest) (*models.RankingResult, error)
	calls atomic.Int32
}

func (f *fakeRanking) Rank(ctx context.Context, req services.RankingRequest) (*models.RankingResult, error) {
	f.calls.Add(1)
	return f.rank(req)
}
