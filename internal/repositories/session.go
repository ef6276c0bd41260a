package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/cv-ranker/internal/models"
)

type SessionRepository interface {
	Create(session *models.RankingSession) error
	FindByID(id uuid.UUID) (*models.RankingSession, error)
	UpdateStatus(id uuid.UUID, status models.SessionStatus) error
	SaveResult(id uuid.UUID, result *SessionResultData) error
	UpdateError(id uuid.UUID, errorMsg string) error
	FindExpired(before time.Time, limit int) ([]models.RankingSession, error)
	Delete(id uuid.UUID) error
}

type SessionResultData struct {
	TotalCandidates       int
	ProcessingTimeSeconds float64
	Results               []models.CandidateResult
	Failures              []models.CandidateFailureRecord
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(session *models.RankingSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) FindByID(id uuid.UUID) (*models.RankingSession, error) {
	var session models.RankingSession
	err := r.db.
		Preload("Results", func(db *gorm.DB) *gorm.DB { return db.Order("rank ASC") }).
		Preload("Failures").
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &session, nil
}

func (r *sessionRepository) UpdateStatus(id uuid.UUID, status models.SessionStatus) error {
	result := r.db.Model(&models.RankingSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	return nil
}

// SaveResult stores the shortlist and failures and marks the session completed.
func (r *sessionRepository) SaveResult(id uuid.UUID, data *SessionResultData) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for i := range data.Results {
			data.Results[i].SessionID = id
		}
		for i := range data.Failures {
			data.Failures[i].SessionID = id
		}

		if len(data.Results) > 0 {
			if err := tx.Create(&data.Results).Error; err != nil {
				return fmt.Errorf("failed to save candidate results: %w", err)
			}
		}
		if len(data.Failures) > 0 {
			if err := tx.Create(&data.Failures).Error; err != nil {
				return fmt.Errorf("failed to save candidate failures: %w", err)
			}
		}

		result := tx.Model(&models.RankingSession{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":                  models.StatusCompleted,
				"total_candidates":        data.TotalCandidates,
				"processing_time_seconds": data.ProcessingTimeSeconds,
				"updated_at":              time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update result: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("session %s: %w", id, ErrNotFound)
		}

		return nil
	})
}

func (r *sessionRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	result := r.db.Model(&models.RankingSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": errorMsg,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update error: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	return nil
}

func (r *sessionRepository) FindExpired(before time.Time, limit int) ([]models.RankingSession, error) {
	var sessions []models.RankingSession
	err := r.db.
		Where("created_at < ?", before).
		Order("created_at ASC").
		Limit(limit).
		Find(&sessions).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find expired sessions: %w", err)
	}

	return sessions, nil
}

// Delete removes the session and every row that belongs to it.
func (r *sessionRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.CandidateResult{},
			&models.CandidateFailureRecord{},
			&models.Document{},
		} {
			if err := tx.Where("session_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete session rows: %w", err)
			}
		}

		if err := tx.Where("id = ?", id).Delete(&models.RankingSession{}).Error; err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}

		return nil
	})
}
