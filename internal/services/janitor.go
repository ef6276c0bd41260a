package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/repositories"
)

// expiredBatchSize bounds how many persisted sessions one sweep reclaims.
const expiredBatchSize = 50

type Janitor interface {
	Start(ctx context.Context)
	Stop()
	Sweep(ctx context.Context) int
}

type janitor struct {
	sessions    SessionManager
	sessionRepo repositories.SessionRepository
	ttl         time.Duration
	interval    time.Duration
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
	log         *zap.Logger
}

// NewJanitor tears down sessions older than ttl every interval. sessionRepo
// may be nil when nothing is persisted.
func NewJanitor(
	sessions SessionManager,
	sessionRepo repositories.SessionRepository,
	ttl time.Duration,
	interval time.Duration,
	log *zap.Logger,
) Janitor {
	return &janitor{
		sessions:    sessions,
		sessionRepo: sessionRepo,
		ttl:         ttl,
		interval:    interval,
		stopChan:    make(chan struct{}),
		log:         logger.OrNop(log),
	}
}

// Start implements Janitor.
func (j *janitor) Start(ctx context.Context) {
	j.log.Info("🚀 Starting session janitor", zap.Duration("ttl", j.ttl), zap.Duration("interval", j.interval))

	j.wg.Add(1)
	go j.run(ctx)
}

// Stop implements Janitor.
func (j *janitor) Stop() {
	j.log.Info("🛑 Stopping session janitor...")
	j.stopOnce.Do(func() { close(j.stopChan) })
	j.wg.Wait()
	j.log.Info("✅ Session janitor stopped")
}

func (j *janitor) run(ctx context.Context) {
	defer j.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.Sweep(ctx); n > 0 {
				j.log.Info("🧹 Expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

// Sweep tears down every expired session once and returns how many were removed.
func (j *janitor) Sweep(ctx context.Context) int {
	ids := make(map[string]struct{})
	for _, id := range j.sessions.Expired(j.ttl) {
		ids[id] = struct{}{}
	}

	if j.sessionRepo != nil {
		persisted, err := j.sessionRepo.FindExpired(time.Now().Add(-j.ttl), expiredBatchSize)
		if err != nil {
			j.log.Warn("⚠️ Failed to fetch expired sessions", zap.Error(err))
		}
		for _, s := range persisted {
			ids[s.ID.String()] = struct{}{}
		}
	}

	removed := 0
	for id := range ids {
		if err := j.sessions.Teardown(ctx, id); err != nil {
			j.log.Warn("⚠️ Failed to tear down session", zap.String("session_id", id), zap.Error(err))
			continue
		}

		if j.sessionRepo != nil {
			if parsed, err := uuid.Parse(id); err == nil {
				if err := j.sessionRepo.Delete(parsed); err != nil {
					j.log.Warn("⚠️ Failed to delete session records", zap.String("session_id", id), zap.Error(err))
				}
			}
		}
		removed++
	}

	return removed
}
