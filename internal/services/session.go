package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/logger"
)

// SessionManager owns the lifecycle of ranking sessions. A session is held
// by at most one operation at a time, so teardown waits for an in-flight
// ranking of the same session.
type SessionManager interface {
	Create() (string, error)
	Acquire(sessionID string) (release func(), err error)
	Teardown(ctx context.Context, sessionID string) error
	Expired(maxAge time.Duration) []string
}

type sessionEntry struct {
	mu        sync.Mutex
	createdAt time.Time
	closed    bool
}

type sessionManager struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	storage  StorageService
	store    VectorStore
	now      func() time.Time
	log      *zap.Logger
}

func NewSessionManager(storage StorageService, store VectorStore, log *zap.Logger) SessionManager {
	return &sessionManager{
		sessions: make(map[string]*sessionEntry),
		storage:  storage,
		store:    store,
		now:      time.Now,
		log:      logger.OrNop(log),
	}
}

func (m *sessionManager) Create() (string, error) {
	id := uuid.New().String()

	if _, err := m.storage.CreateSessionDir(id); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.sessions[id] = &sessionEntry{createdAt: m.now()}
	m.mu.Unlock()

	m.log.Debug("📁 Session created", zap.String("session_id", id))
	return id, nil
}

func (m *sessionManager) lookup(sessionID string) (*sessionEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[sessionID]
	return entry, ok
}

// Acquire blocks until the session is free.
func (m *sessionManager) Acquire(sessionID string) (func(), error) {
	entry, ok := m.lookup(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	entry.mu.Lock()
	if entry.closed {
		entry.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	var once sync.Once
	return func() { once.Do(entry.mu.Unlock) }, nil
}

// Teardown purges the session's vectors and files. Unknown sessions are
// still purged so leftovers from a previous process are reclaimed.
func (m *sessionManager) Teardown(ctx context.Context, sessionID string) error {
	if entry, ok := m.lookup(sessionID); ok {
		entry.mu.Lock()
		defer entry.mu.Unlock()
		entry.closed = true
	}

	var errs []error
	if err := m.store.Purge(ctx, sessionID); err != nil {
		errs = append(errs, err)
	}
	if err := m.storage.RemoveSessionDir(sessionID); err != nil {
		errs = append(errs, err)
	}

	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to tear down session %s: %w", sessionID, err)
	}

	m.log.Info("🧹 Session torn down", zap.String("session_id", sessionID))
	return nil
}

// Expired lists sessions created more than maxAge ago, oldest first.
func (m *sessionManager) Expired(maxAge time.Duration) []string {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	type aged struct {
		id        string
		createdAt time.Time
	}
	var expired []aged
	for id, entry := range m.sessions {
		if entry.createdAt.Before(cutoff) {
			expired = append(expired, aged{id: id, createdAt: entry.createdAt})
		}
	}

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].createdAt.Before(expired[j].createdAt)
	})

	ids := make([]string, len(expired))
	for i, e := range expired {
		ids[i] = e.id
	}
	return ids
}
