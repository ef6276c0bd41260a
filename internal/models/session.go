package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	StatusQueued     SessionStatus = "queued"
	StatusProcessing SessionStatus = "processing"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
)

// RankingSession is the persisted record of one ranking request.
type RankingSession struct {
	ID                    uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	JobDescription        string        `gorm:"type:text" json:"job_description"`
	TopN                  int           `gorm:"not null" json:"top_n"`
	Status                SessionStatus `gorm:"not null;default:'queued'" json:"status"`
	TotalCandidates       *int          `json:"total_candidates,omitempty"`
	ProcessingTimeSeconds *float64      `gorm:"type:decimal(10,2)" json:"processing_time_seconds,omitempty"`
	ErrorMessage          *string       `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt             time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Documents []Document               `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
	Results   []CandidateResult        `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
	Failures  []CandidateFailureRecord `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (RankingSession) TableName() string {
	return "ranking_sessions"
}

// CandidateResult is one shortlisted candidate of a completed session.
type CandidateResult struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SessionID      uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	DocumentID     uuid.UUID `gorm:"type:uuid;not null" json:"document_id"`
	Rank           int       `gorm:"not null" json:"rank"`
	CandidateName  string    `gorm:"type:text" json:"candidate_name"`
	CompositeScore float64   `gorm:"type:decimal(5,2)" json:"composite_score"`
	SkillMatch     float64   `gorm:"type:decimal(5,2)" json:"skill_match"`
	Experience     float64   `gorm:"type:decimal(5,2)" json:"experience"`
	ToolTech       float64   `gorm:"type:decimal(5,2)" json:"tool_tech"`
	Seniority      float64   `gorm:"type:decimal(5,2)" json:"seniority"`
	Semantic       float64   `gorm:"type:decimal(5,4)" json:"semantic"`
	MatchedSkills  []string  `gorm:"serializer:json" json:"matched_skills"`
	MissingSkills  []string  `gorm:"serializer:json" json:"missing_skills"`
	Explanation    string    `gorm:"type:text" json:"explanation"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (CandidateResult) TableName() string {
	return "candidate_results"
}

// CandidateFailureRecord is a résumé excluded from a session's ranking.
type CandidateFailureRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SessionID  uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null" json:"document_id"`
	Stage      string    `gorm:"type:text" json:"stage"`
	Error      string    `gorm:"type:text" json:"error"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (CandidateFailureRecord) TableName() string {
	return "candidate_failures"
}
