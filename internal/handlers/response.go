package handlers

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"alfredoptarigan/cv-ranker/internal/models"
)

func downloadURL(sessionID, documentID string) string {
	return fmt.Sprintf("/api/v1/sessions/%s/documents/%s", sessionID, documentID)
}

func buildRankResponse(result *models.RankingResult) models.RankResponse {
	response := models.RankResponse{
		SessionID:             result.SessionID,
		TopCandidates:         make([]models.CandidateResponse, 0, len(result.TopCandidates)),
		Failures:              result.Failures,
		TotalCandidates:       result.TotalCandidates,
		ProcessingTimeSeconds: result.ProcessingTimeSeconds,
	}
	if response.Failures == nil {
		response.Failures = []models.CandidateFailure{}
	}

	for i, c := range result.TopCandidates {
		f := c.FactorScores
		response.TopCandidates = append(response.TopCandidates, models.CandidateResponse{
			Rank:          i + 1,
			CandidateName: c.Candidate.CandidateName,
			DocumentID:    c.Candidate.SourceDocumentID,
			Filename:      c.Filename,
			DownloadURL:   downloadURL(result.SessionID, c.Candidate.SourceDocumentID),
			MatchScore:    c.CompositeScore,
			MatchedSkills: nonNil(c.MatchedSkills),
			MissingSkills: nonNil(c.MissingSkills),
			Explanation:   c.Explanation,
			DetailedScores: models.DetailedScores{
				SkillMatch: f.SkillMatch,
				Experience: f.Experience,
				ToolTech:   f.ToolTech,
				Seniority:  f.Seniority,
				Semantic:   round2(f.Semantic * 100),
			},
		})
	}

	return response
}

// toRecords converts a ranking result into rows for persistence.
func toRecords(result *models.RankingResult) ([]models.CandidateResult, []models.CandidateFailureRecord) {
	records := make([]models.CandidateResult, 0, len(result.TopCandidates))
	for i, c := range result.TopCandidates {
		docID, _ := uuid.Parse(c.Candidate.SourceDocumentID)
		f := c.FactorScores
		records = append(records, models.CandidateResult{
			ID:             uuid.New(),
			DocumentID:     docID,
			Rank:           i + 1,
			CandidateName:  c.Candidate.CandidateName,
			CompositeScore: c.CompositeScore,
			SkillMatch:     f.SkillMatch,
			Experience:     f.Experience,
			ToolTech:       f.ToolTech,
			Seniority:      f.Seniority,
			Semantic:       f.Semantic,
			MatchedSkills:  nonNil(c.MatchedSkills),
			MissingSkills:  nonNil(c.MissingSkills),
			Explanation:    c.Explanation,
		})
	}

	failures := make([]models.CandidateFailureRecord, 0, len(result.Failures))
	for _, f := range result.Failures {
		docID, _ := uuid.Parse(f.CandidateID)
		failures = append(failures, models.CandidateFailureRecord{
			ID:         uuid.New(),
			DocumentID: docID,
			Stage:      f.Stage,
			Error:      f.Error,
		})
	}

	return records, failures
}

// fromRecords rebuilds the response of a completed, persisted session.
func fromRecords(session *models.RankingSession, docs []models.Document) *models.RankResponse {
	filenames := make(map[uuid.UUID]string, len(docs))
	for _, d := range docs {
		filenames[d.ID] = d.OriginalFileName
	}

	sessionID := session.ID.String()
	response := &models.RankResponse{
		SessionID:     sessionID,
		TopCandidates: make([]models.CandidateResponse, 0, len(session.Results)),
		Failures:      make([]models.CandidateFailure, 0, len(session.Failures)),
	}
	if session.TotalCandidates != nil {
		response.TotalCandidates = *session.TotalCandidates
	}
	if session.ProcessingTimeSeconds != nil {
		response.ProcessingTimeSeconds = *session.ProcessingTimeSeconds
	}

	for _, r := range session.Results {
		response.TopCandidates = append(response.TopCandidates, models.CandidateResponse{
			Rank:          r.Rank,
			CandidateName: r.CandidateName,
			DocumentID:    r.DocumentID.String(),
			Filename:      filenames[r.DocumentID],
			DownloadURL:   downloadURL(sessionID, r.DocumentID.String()),
			MatchScore:    r.CompositeScore,
			MatchedSkills: nonNil(r.MatchedSkills),
			MissingSkills: nonNil(r.MissingSkills),
			Explanation:   r.Explanation,
			DetailedScores: models.DetailedScores{
				SkillMatch: r.SkillMatch,
				Experience: r.Experience,
				ToolTech:   r.ToolTech,
				Seniority:  r.Seniority,
				Semantic:   round2(r.Semantic * 100),
			},
		})
	}

	for _, f := range session.Failures {
		response.Failures = append(response.Failures, models.CandidateFailure{
			CandidateID: f.DocumentID.String(),
			Filename:    filenames[f.DocumentID],
			Stage:       f.Stage,
			Error:       f.Error,
		})
	}

	return response
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
