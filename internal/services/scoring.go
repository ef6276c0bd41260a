package services

import (
	"math"

	"alfredoptarigan/cv-ranker/internal/models"
)

// Factor weights of the composite score. They sum to 1.
const (
	WeightSkillMatch = 0.40
	WeightExperience = 0.25
	WeightToolTech   = 0.20
	WeightSeniority  = 0.10
	WeightSemantic   = 0.05
)

// ScoreCandidate computes the factor breakdown and composite score of one
// candidate against the job. semantic is the best chunk similarity in [0,1].
func ScoreCandidate(job models.JobProfile, candidate models.CandidateProfile, semantic float64) models.RankedCandidate {
	matched, missing := job.Skills.Partition(candidate.Skills)

	factors := models.FactorScores{
		SkillMatch: overlapScore(job.Skills, candidate.Skills),
		Experience: experienceScore(job.YearsExperience, candidate.YearsExperience),
		ToolTech:   overlapScore(job.Tools, candidate.Tools),
		Seniority:  seniorityScore(job.Seniority, candidate.Seniority),
		Semantic:   clamp(semantic, 0, 1),
	}

	return models.RankedCandidate{
		Candidate:      candidate,
		FactorScores:   factors,
		CompositeScore: CompositeScore(factors),
		MatchedSkills:  matched,
		MissingSkills:  missing,
	}
}

// CompositeScore is the weighted sum of the factors, clamped to [0,100] and
// rounded to two decimals.
func CompositeScore(f models.FactorScores) float64 {
	score := WeightSkillMatch*f.SkillMatch +
		WeightExperience*f.Experience +
		WeightToolTech*f.ToolTech +
		WeightSeniority*f.Seniority +
		WeightSemantic*100*f.Semantic

	return round2(clamp(score, 0, 100))
}

// overlapScore is the share of required items the candidate has. An empty
// requirement is fully satisfied.
func overlapScore(required, have models.SkillSet) float64 {
	if len(required) == 0 {
		return 100
	}
	present, _ := required.Partition(have)
	return round2(100 * float64(len(present)) / float64(len(required)))
}

func experienceScore(requiredYears, candidateYears float64) float64 {
	if requiredYears <= 0 {
		return 100
	}
	return round2(100 * clamp(candidateYears/requiredYears, 0, 1))
}

func seniorityScore(required, have models.Seniority) float64 {
	steps, ok := required.Steps(have)
	if !ok {
		return 0
	}
	switch steps {
	case 0:
		return 100
	case 1:
		return 50
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
