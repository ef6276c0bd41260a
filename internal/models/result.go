package models

type RankResponse struct {
	SessionID             string              `json:"session_id"`
	TopCandidates         []CandidateResponse `json:"top_candidates"`
	Failures              []CandidateFailure  `json:"failures"`
	TotalCandidates       int                 `json:"total_candidates"`
	ProcessingTimeSeconds float64             `json:"processing_time_seconds"`
}

type CandidateResponse struct {
	Rank           int            `json:"rank"`
	CandidateName  string         `json:"candidate_name"`
	DocumentID     string         `json:"document_id"`
	Filename       string         `json:"filename"`
	DownloadURL    string         `json:"download_url"`
	MatchScore     float64        `json:"match_score"`
	MatchedSkills  []string       `json:"matched_skills"`
	MissingSkills  []string       `json:"missing_skills"`
	Explanation    string         `json:"explanation"`
	DetailedScores DetailedScores `json:"detailed_scores"`
}

// DetailedScores reports every factor on the 0-100 scale.
type DetailedScores struct {
	SkillMatch float64 `json:"skill_match"`
	Experience float64 `json:"experience"`
	ToolTech   float64 `json:"tool_tech"`
	Seniority  float64 `json:"seniority"`
	Semantic   float64 `json:"semantic"`
}

type SessionResultResponse struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	Result       *RankResponse `json:"result,omitempty"`
	ErrorMessage *string       `json:"error_message,omitempty"`
}
