package services

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat            = errors.New("unsupported document format")
	ErrCorruptDocument              = errors.New("corrupt document: no extractable text")
	ErrExtractionParse              = errors.New("extraction parse error")
	ErrEmbeddingDimensionMismatch   = errors.New("embedding dimension mismatch")
	ErrVectorStoreUnavailable       = errors.New("vector store unavailable")
	ErrCompletionServiceUnavailable = errors.New("completion service unavailable")
	ErrEmbeddingServiceUnavailable  = errors.New("embedding service unavailable")
	ErrInvalidParameter             = errors.New("invalid parameter")
	ErrSessionNotFound              = errors.New("session not found")
)

// Pipeline stages reported with a failure.
const (
	StageNormalize = "normalize"
	StageChunk     = "chunk"
	StageExtract   = "extract"
	StageEmbed     = "embed"
	StageUpsert    = "upsert"
	StageQuery     = "query"
	StageExplain   = "explain"
	StageJDExtract = "jd_extract"
	StageJDEmbed   = "jd_embed"
)

// StageError records which candidate failed at which pipeline stage.
type StageError struct {
	CandidateID string
	Stage       string
	Err         error
}

func (e *StageError) Error() string {
	if e.CandidateID == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("candidate %s: %s: %v", e.CandidateID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(candidateID, stage string, err error) error {
	return &StageError{CandidateID: candidateID, Stage: stage, Err: err}
}
