package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-ranker/internal/models"
)

func TestJanitor_SweepWithoutRepository(t *testing.T) {
	m, clock, _ := newTestSessions(t, NewMemoryStore())

	expired, err := m.Create()
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	fresh, err := m.Create()
	require.NoError(t, err)

	j := NewJanitor(m, nil, time.Hour, time.Minute, nil)

	assert.Equal(t, 1, j.Sweep(context.Background()))
	assert.False(t, sessionTracked(m, expired))
	assert.True(t, sessionTracked(m, fresh))
	assert.Equal(t, 0, j.Sweep(context.Background()))
}

func TestJanitor_SweepRemovesPersistedSessions(t *testing.T) {
	m, clock, _ := newTestSessions(t, NewMemoryStore())

	inMemory, err := m.Create()
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	persisted := uuid.New()
	repo := new(MockSessionRepository)
	repo.On("FindExpired", mock.AnythingOfType("time.Time"), expiredBatchSize).
		Return([]models.RankingSession{{ID: persisted}, {ID: uuid.MustParse(inMemory)}}, nil)
	repo.On("Delete", persisted).Return(nil)
	repo.On("Delete", uuid.MustParse(inMemory)).Return(nil)

	j := NewJanitor(m, repo, time.Hour, time.Minute, nil)

	assert.Equal(t, 2, j.Sweep(context.Background()))
	assert.False(t, sessionTracked(m, inMemory))
	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "Delete", 2)
}

func TestJanitor_SweepSurvivesRepositoryError(t *testing.T) {
	m, clock, _ := newTestSessions(t, NewMemoryStore())

	id, err := m.Create()
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	repo := new(MockSessionRepository)
	repo.On("FindExpired", mock.Anything, expiredBatchSize).Return(nil, errors.New("connection reset"))
	repo.On("Delete", uuid.MustParse(id)).Return(errors.New("connection reset"))

	j := NewJanitor(m, repo, time.Hour, time.Minute, nil)

	assert.Equal(t, 1, j.Sweep(context.Background()))
	assert.False(t, sessionTracked(m, id))
	repo.AssertExpectations(t)
}

func TestJanitor_StartStop(t *testing.T) {
	m, clock, _ := newTestSessions(t, NewMemoryStore())

	id, err := m.Create()
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	j := NewJanitor(m, nil, time.Hour, 10*time.Millisecond, nil)
	j.Start(context.Background())

	assert.Eventually(t, func() bool { return !sessionTracked(m, id) }, time.Second, 10*time.Millisecond)

	j.Stop()
	j.Stop()
}
