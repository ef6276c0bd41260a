package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/models"
)

type RankingRequest struct {
	SessionID      string
	JobDescription string
	Documents      []models.SourceDocument
	TopN           int
}

type RankingService interface {
	Rank(ctx context.Context, req RankingRequest) (*models.RankingResult, error)
}

// RankingOptions tunes the pipeline. QueryTopK is a floor: the session
// query always asks for at least as many chunks as were stored, so every
// candidate's best chunk is seen. ExplainTimeout bounds each explanation
// call and is capped at CallTimeout.
type RankingOptions struct {
	Workers        int
	QueryTopK      int
	CallTimeout    time.Duration
	ExplainTimeout time.Duration
}

type rankingService struct {
	normalizer    DocumentNormalizer
	chunker       TextChunker
	extractor     StructuredExtractor
	embedder      Embedder
	store         VectorStore
	completion    CompletionService
	promptBuilder *PromptBuilder
	opts          RankingOptions
	log           *zap.Logger
}

func NewRankingService(
	normalizer DocumentNormalizer,
	chunker TextChunker,
	extractor StructuredExtractor,
	embedder Embedder,
	store VectorStore,
	completion CompletionService,
	opts RankingOptions,
	log *zap.Logger,
) RankingService {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueryTopK <= 0 {
		opts.QueryTopK = 500
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 60 * time.Second
	}
	if opts.ExplainTimeout <= 0 {
		opts.ExplainTimeout = 15 * time.Second
	}
	opts.ExplainTimeout = min(opts.ExplainTimeout, opts.CallTimeout)

	return &rankingService{
		normalizer:    normalizer,
		chunker:       chunker,
		extractor:     extractor,
		embedder:      embedder,
		store:         store,
		completion:    completion,
		promptBuilder: NewPromptBuilder(),
		opts:          opts,
		log:           logger.OrNop(log),
	}
}

type candidateOutcome struct {
	profile models.CandidateProfile
	chunks  int
	err     error
}

// Rank runs the whole pipeline for one session. Per-candidate failures are
// reported in the result; JD and vector store failures abort the request.
func (s *rankingService) Rank(ctx context.Context, req RankingRequest) (*models.RankingResult, error) {
	start := time.Now()

	if err := ValidateTopN(req.TopN); err != nil {
		return nil, err
	}
	if req.SessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidParameter)
	}
	if strings.TrimSpace(req.JobDescription) == "" {
		return nil, fmt.Errorf("%w: job description is required", ErrInvalidParameter)
	}
	if len(req.Documents) == 0 {
		return nil, fmt.Errorf("%w: at least one document is required", ErrInvalidParameter)
	}

	log := s.log.With(zap.String("session_id", req.SessionID))
	log.Info("🔄 Starting ranking", zap.Int("documents", len(req.Documents)), zap.Int("top_n", req.TopN))

	var (
		job       models.JobProfile
		jobVector []float32
		outcomes  = make([]candidateOutcome, len(req.Documents))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(gctx, s.opts.CallTimeout)
		defer cancel()

		profile, err := s.extractor.ExtractJob(callCtx, req.JobDescription)
		if err != nil {
			return stageErr("", StageJDExtract, err)
		}
		job = profile
		return nil
	})

	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(gctx, s.opts.CallTimeout)
		defer cancel()

		vector, err := s.embedder.EmbedText(callCtx, req.JobDescription)
		if err != nil {
			return stageErr("", StageJDEmbed, err)
		}
		jobVector = vector
		return nil
	})

	for i, doc := range req.Documents {
		g.Go(func() error {
			profile, chunks, err := s.ingestCandidate(gctx, req.SessionID, doc)
			if errors.Is(err, ErrVectorStoreUnavailable) {
				return err
			}
			outcomes[i] = candidateOutcome{profile: profile, chunks: chunks, err: err}
			return nil
		})
	}

	// Every upsert has finished past this point.
	if err := g.Wait(); err != nil {
		log.Error("❌ Ranking aborted", zap.Error(err))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored := 0
	for _, outcome := range outcomes {
		stored += outcome.chunks
	}

	similarity, err := s.bestSimilarity(ctx, req.SessionID, jobVector, max(s.opts.QueryTopK, stored))
	if err != nil {
		log.Error("❌ Session query failed", zap.Error(err))
		return nil, err
	}

	var (
		scored   []models.RankedCandidate
		failures = []models.CandidateFailure{}
	)
	for i, outcome := range outcomes {
		doc := req.Documents[i]
		if outcome.err != nil {
			failures = append(failures, failureFor(doc, outcome.err))
			log.Warn("⚠️ Candidate excluded", zap.String("candidate_id", doc.ID), zap.String("filename", doc.Filename), zap.Error(outcome.err))
			continue
		}

		candidate := ScoreCandidate(job, outcome.profile, similarity[doc.ID])
		candidate.Filename = doc.Filename
		candidate.UploadOrder = i
		scored = append(scored, candidate)
	}

	top, err := RankCandidates(scored, req.TopN)
	if err != nil {
		return nil, err
	}

	s.explain(ctx, job, top)

	result := &models.RankingResult{
		SessionID:             req.SessionID,
		TopCandidates:         top,
		Failures:              failures,
		TotalCandidates:       len(scored),
		ProcessingTimeSeconds: round2(time.Since(start).Seconds()),
	}

	log.Info("✅ Ranking completed",
		zap.Int("total_candidates", result.TotalCandidates),
		zap.Int("failures", len(failures)),
		zap.Float64("processing_time_seconds", result.ProcessingTimeSeconds),
	)

	return result, nil
}

// ingestCandidate stores the candidate's chunks and returns its profile
// along with the number of chunks written.
func (s *rankingService) ingestCandidate(ctx context.Context, sessionID string, doc models.SourceDocument) (models.CandidateProfile, int, error) {
	text, err := s.normalizer.Normalize(doc.Data, doc.Format)
	if err != nil {
		return models.CandidateProfile{}, 0, stageErr(doc.ID, StageNormalize, err)
	}

	chunks := s.chunker.Split(text)
	if len(chunks) == 0 {
		return models.CandidateProfile{}, 0, stageErr(doc.ID, StageChunk, ErrCorruptDocument)
	}

	extractCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	profile, err := s.extractor.ExtractCandidate(extractCtx, doc, text)
	cancel()
	if err != nil {
		return models.CandidateProfile{}, 0, stageErr(doc.ID, StageExtract, err)
	}

	for i := range chunks {
		embedCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
		vector, err := s.embedder.EmbedText(embedCtx, chunks[i].Text)
		cancel()
		if err != nil {
			return models.CandidateProfile{}, 0, stageErr(doc.ID, StageEmbed, err)
		}
		chunks[i].Embedding = vector
		chunks[i].CandidateID = doc.ID
	}

	upsertCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	if err := s.store.Upsert(upsertCtx, sessionID, doc.ID, chunks); err != nil {
		return models.CandidateProfile{}, 0, stageErr(doc.ID, StageUpsert, err)
	}

	s.log.Debug("📥 Candidate ingested",
		zap.String("session_id", sessionID),
		zap.String("candidate_id", doc.ID),
		zap.Int("chunks", len(chunks)),
	)

	return profile, len(chunks), nil
}

// bestSimilarity keeps the highest chunk similarity per candidate, clamped to [0,1].
func (s *rankingService) bestSimilarity(ctx context.Context, sessionID string, jobVector []float32, topK int) (map[string]float64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	matches, err := s.store.Query(queryCtx, sessionID, jobVector, topK)
	if err != nil {
		return nil, stageErr("", StageQuery, err)
	}

	best := make(map[string]float64)
	for _, m := range matches {
		sim := clamp(float64(m.Similarity), 0, 1)
		if cur, ok := best[m.CandidateID]; !ok || sim > cur {
			best[m.CandidateID] = sim
		}
	}

	return best, nil
}

// explain fills in explanations for the shortlist concurrently. A failed
// completion falls back to the template and never fails the ranking.
func (s *rankingService) explain(ctx context.Context, job models.JobProfile, top []models.RankedCandidate) {
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	for i := range top {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, s.opts.ExplainTimeout)
			defer cancel()

			text, err := s.completion.Complete(callCtx, s.promptBuilder.BuildExplanationPrompt(job, top[i]))
			text = strings.TrimSpace(text)
			if err == nil && text == "" {
				err = errors.New("empty explanation")
			}
			if err != nil {
				s.log.Warn("⚠️ Explanation fallback to template",
					zap.String("candidate_id", top[i].Candidate.SourceDocumentID),
					zap.Error(stageErr(top[i].Candidate.SourceDocumentID, StageExplain, err)),
				)
				text = TemplateExplanation(top[i])
			}
			top[i].Explanation = text
			return nil
		})
	}

	_ = g.Wait()
}

func failureFor(doc models.SourceDocument, err error) models.CandidateFailure {
	failure := models.CandidateFailure{
		CandidateID: doc.ID,
		Filename:    doc.Filename,
		Error:       err.Error(),
	}

	var se *StageError
	if errors.As(err, &se) {
		failure.Stage = se.Stage
		failure.Error = se.Err.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		failure.Error = "timeout: " + failure.Error
	}

	return failure
}
