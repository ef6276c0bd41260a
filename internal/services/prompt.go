package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/cv-ranker/internal/models"
)

// maxPromptDocumentChars bounds the document text embedded in a prompt.
const maxPromptDocumentChars = 15000

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildJobExtractionPrompt creates the prompt that turns a JD into a JobProfile
func (pb *PromptBuilder) BuildJobExtractionPrompt(jobDescription string) string {
	return fmt.Sprintf(`You are an expert technical recruiter. Extract the hiring requirements from the job description below.

JOB DESCRIPTION:
%s

Return ONLY valid JSON with exactly this structure:
{
  "skills": ["<required skill>", ...],
  "tools": ["<required tool, framework, platform or technology>", ...],
  "years_experience": <minimum years of experience required as a number, 0 if not stated>,
  "seniority_level": "<one of: junior, mid, senior, lead, principal>",
  "responsibilities": ["<main responsibility>", ...]
}

Rules:
- Skills are competencies (e.g. "Python", "SQL", "system design"); tools are concrete products (e.g. "Docker", "AWS", "PostgreSQL").
- Use short canonical names, one item per entry, no duplicates.
- Use empty lists when nothing is stated. Do not invent requirements.`,
		truncateForPrompt(jobDescription))
}

// BuildCandidateExtractionPrompt creates the prompt that turns a résumé into a CandidateProfile
func (pb *PromptBuilder) BuildCandidateExtractionPrompt(cvText string) string {
	return fmt.Sprintf(`You are an expert HR analyst. Extract a structured profile from the candidate CV below.

CANDIDATE CV:
%s

Return ONLY valid JSON with exactly this structure:
{
  "candidate_name": "<full name of the candidate, empty string if not found>",
  "skills": ["<skill the candidate demonstrates>", ...],
  "tools": ["<tool, framework, platform or technology the candidate has used>", ...],
  "years_experience": <total years of professional experience as a number>,
  "seniority_level": "<one of: junior, mid, senior, lead, principal>",
  "responsibilities": ["<main responsibility held>", ...]
}

Rules:
- Skills are competencies (e.g. "Python", "SQL", "system design"); tools are concrete products (e.g. "Docker", "AWS", "PostgreSQL").
- Use short canonical names, one item per entry, no duplicates.
- Only report what the CV states. Use empty lists when nothing is found.`,
		truncateForPrompt(cvText))
}

// BuildExplanationPrompt asks for a short summary of a computed score breakdown
func (pb *PromptBuilder) BuildExplanationPrompt(job models.JobProfile, candidate models.RankedCandidate) string {
	f := candidate.FactorScores

	return fmt.Sprintf(`You are an expert hiring manager. Explain in 2-3 sentences why this candidate received the score below for the role. Mention the main strengths and the key gaps. Do not restate every number.

ROLE REQUIREMENTS:
- Skills: %s
- Tools: %s
- Minimum experience: %.1f years
- Seniority: %s

CANDIDATE: %s
- Composite score: %.2f / 100
- Skill match: %.0f, Experience: %.0f, Tools: %.0f, Seniority: %.0f, Semantic similarity: %.0f
- Matched skills: %s
- Missing skills: %s
- Experience: %.1f years, seniority %s

Return ONLY the explanation text, no JSON, no headings.`,
		joinOrNone(job.Skills), joinOrNone(job.Tools), job.YearsExperience, job.Seniority,
		candidate.Candidate.CandidateName,
		candidate.CompositeScore,
		f.SkillMatch, f.Experience, f.ToolTech, f.Seniority, f.Semantic*100,
		joinOrNone(candidate.MatchedSkills), joinOrNone(candidate.MissingSkills),
		candidate.Candidate.YearsExperience, candidate.Candidate.Seniority)
}

func truncateForPrompt(text string) string {
	runes := []rune(text)
	if len(runes) <= maxPromptDocumentChars {
		return text
	}
	return string(runes[:maxPromptDocumentChars])
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
