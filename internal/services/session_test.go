package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-ranker/internal/models"
)

// fakeClock is a settable time source for session ageing.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestSessions(t *testing.T, store VectorStore) (SessionManager, *fakeClock, string) {
	t.Helper()

	root := t.TempDir()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}

	m := NewSessionManager(NewStorageService(root, 0), store, nil)
	m.(*sessionManager).now = clock.Now
	return m, clock, root
}

func sessionTracked(m SessionManager, id string) bool {
	_, ok := m.(*sessionManager).lookup(id)
	return ok
}

func TestSessionManager_CreateAndAcquire(t *testing.T) {
	m, _, root := newTestSessions(t, NewMemoryStore())

	id, err := m.Create()
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)
	assert.True(t, sessionTracked(m, id))
	assert.DirExists(t, filepath.Join(root, id))

	release, err := m.Acquire(id)
	require.NoError(t, err)
	release()
	release()

	release, err = m.Acquire(id)
	require.NoError(t, err)
	release()

	_, err = m.Acquire(uuid.NewString())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionManager_TeardownWaitsForRelease(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, _, root := newTestSessions(t, store)

	id, err := m.Create()
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, id, "doc-0", []models.Chunk{{ChunkIndex: 0, Embedding: []float32{1, 0}}}))

	release, err := m.Acquire(id)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- m.Teardown(ctx, id) }()

	select {
	case <-done:
		t.Fatal("teardown finished while the session was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("teardown did not finish after release")
	}

	assert.False(t, sessionTracked(m, id))
	assert.NoDirExists(t, filepath.Join(root, id))

	matches, err := store.Query(ctx, id, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = m.Acquire(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionManager_TeardownUnknownSessionStillPurges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, _, root := newTestSessions(t, store)

	id := uuid.NewString()
	require.NoError(t, os.MkdirAll(filepath.Join(root, id), 0755))
	require.NoError(t, store.Upsert(ctx, id, "doc-0", []models.Chunk{{ChunkIndex: 0, Embedding: []float32{1}}}))

	require.NoError(t, m.Teardown(ctx, id))

	assert.NoDirExists(t, filepath.Join(root, id))
	matches, err := store.Query(ctx, id, []float32{1}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	assert.Error(t, m.Teardown(ctx, "../etc"))
}

func TestSessionManager_Expired(t *testing.T) {
	m, clock, _ := newTestSessions(t, NewMemoryStore())

	oldest, err := m.Create()
	require.NoError(t, err)
	clock.Advance(time.Hour)
	older, err := m.Create()
	require.NoError(t, err)
	clock.Advance(time.Hour)
	fresh, err := m.Create()
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)

	assert.Equal(t, []string{oldest, older}, m.Expired(time.Hour))
	assert.Equal(t, []string{oldest, older, fresh}, m.Expired(time.Minute))
	assert.Empty(t, m.Expired(24*time.Hour))
}
