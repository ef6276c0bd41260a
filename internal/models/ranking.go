package models

// DocumentFormat is the declared format tag of an uploaded résumé.
type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatDOC  DocumentFormat = "doc"
	FormatDOCX DocumentFormat = "docx"
)

// SourceDocument is an already validated upload handed to the ranking pipeline.
type SourceDocument struct {
	ID       string
	Filename string
	Format   DocumentFormat
	Data     []byte
}

// Chunk is one embedded window of a candidate's normalized text.
// Overlap is the number of leading runes shared with the previous chunk.
type Chunk struct {
	Text        string    `json:"text"`
	Embedding   []float32 `json:"-"`
	CandidateID string    `json:"candidate_id"`
	ChunkIndex  int       `json:"chunk_index"`
	Overlap     int       `json:"overlap"`
}

// ChunkMatch is a nearest-neighbour hit returned by a session-scoped query.
type ChunkMatch struct {
	CandidateID string
	ChunkIndex  int
	Similarity  float32
}

// FactorScores holds the per-factor breakdown. Semantic is a similarity in
// [0,1]; every other factor is in [0,100].
type FactorScores struct {
	SkillMatch float64 `json:"skill_match"`
	Experience float64 `json:"experience"`
	ToolTech   float64 `json:"tool_tech"`
	Seniority  float64 `json:"seniority"`
	Semantic   float64 `json:"semantic"`
}

type RankedCandidate struct {
	Candidate      CandidateProfile `json:"candidate"`
	Filename       string           `json:"filename"`
	UploadOrder    int              `json:"upload_order"`
	FactorScores   FactorScores     `json:"factor_scores"`
	CompositeScore float64          `json:"composite_score"`
	MatchedSkills  SkillSet         `json:"matched_skills"`
	MissingSkills  SkillSet         `json:"missing_skills"`
	Explanation    string           `json:"explanation"`
}

// CandidateFailure reports a résumé that was excluded from ranking.
type CandidateFailure struct {
	CandidateID string `json:"candidate_id"`
	Filename    string `json:"filename"`
	Stage       string `json:"stage"`
	Error       string `json:"error"`
}

type RankingResult struct {
	SessionID             string             `json:"session_id"`
	TopCandidates         []RankedCandidate  `json:"top_candidates"`
	Failures              []CandidateFailure `json:"failures"`
	TotalCandidates       int                `json:"total_candidates"`
	ProcessingTimeSeconds float64            `json:"processing_time_seconds"`
}
