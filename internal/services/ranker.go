package services

import (
	"fmt"
	"sort"
	"strings"

	"alfredoptarigan/cv-ranker/internal/models"
)

// ValidateTopN rejects shortlist sizes that cannot produce a ranking.
func ValidateTopN(topN int) error {
	if topN <= 0 {
		return fmt.Errorf("%w: top_n must be positive, got %d", ErrInvalidParameter, topN)
	}
	return nil
}

// RankCandidates orders candidates by composite score, then skill match,
// then upload order, and keeps the first topN. The input is not modified.
func RankCandidates(candidates []models.RankedCandidate, topN int) ([]models.RankedCandidate, error) {
	if err := ValidateTopN(topN); err != nil {
		return nil, err
	}

	ranked := make([]models.RankedCandidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		if a.FactorScores.SkillMatch != b.FactorScores.SkillMatch {
			return a.FactorScores.SkillMatch > b.FactorScores.SkillMatch
		}
		return a.UploadOrder < b.UploadOrder
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	return ranked, nil
}

// TemplateExplanation builds an explanation from the numbers alone. It is
// used when the completion service cannot produce one.
func TemplateExplanation(c models.RankedCandidate) string {
	f := c.FactorScores
	name := c.Candidate.CandidateName
	if name == "" {
		name = "The candidate"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s scored %.2f/100 (skills %.0f, experience %.0f, tools %.0f, seniority %.0f, semantic %.0f).",
		name, c.CompositeScore, f.SkillMatch, f.Experience, f.ToolTech, f.Seniority, f.Semantic*100)

	if len(c.MatchedSkills) > 0 {
		fmt.Fprintf(&sb, " Matched skills: %s.", strings.Join(c.MatchedSkills, ", "))
	}
	if len(c.MissingSkills) > 0 {
		fmt.Fprintf(&sb, " Missing skills: %s.", strings.Join(c.MissingSkills, ", "))
	} else {
		sb.WriteString(" No required skills are missing.")
	}

	return sb.String()
}
