package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/models"
)

// StructuredExtractor turns free text into profiles via the completion service.
type StructuredExtractor interface {
	ExtractJob(ctx context.Context, jobDescription string) (models.JobProfile, error)
	ExtractCandidate(ctx context.Context, doc models.SourceDocument, text string) (models.CandidateProfile, error)
}

// profileSchema lists the fields a response must carry. List fields may be
// absent or null and default to empty.
const profileSchema = `{
  "type": "object",
  "required": ["years_experience", "seniority_level"],
  "properties": {
    "candidate_name":   {"type": ["string", "null"]},
    "skills":           {"type": ["array", "null"], "items": {"type": "string"}},
    "tools":            {"type": ["array", "null"], "items": {"type": "string"}},
    "responsibilities": {"type": ["array", "null"], "items": {"type": "string"}},
    "years_experience": {"type": "number", "minimum": 0},
    "seniority_level":  {"type": "string", "minLength": 1}
  }
}`

type extractedProfile struct {
	CandidateName    *string  `json:"candidate_name"`
	Skills           []string `json:"skills"`
	Tools            []string `json:"tools"`
	Responsibilities []string `json:"responsibilities"`
	YearsExperience  float64  `json:"years_experience"`
	SeniorityLevel   string   `json:"seniority_level"`
}

type structuredExtractor struct {
	completion    CompletionService
	promptBuilder *PromptBuilder
	schema        *gojsonschema.Schema
	log           *zap.Logger
}

func NewStructuredExtractor(completion CompletionService, log *zap.Logger) (StructuredExtractor, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(profileSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile profile schema: %w", err)
	}

	return &structuredExtractor{
		completion:    completion,
		promptBuilder: NewPromptBuilder(),
		schema:        schema,
		log:           logger.OrNop(log),
	}, nil
}

// ExtractJob implements StructuredExtractor.
func (e *structuredExtractor) ExtractJob(ctx context.Context, jobDescription string) (models.JobProfile, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return models.JobProfile{}, fmt.Errorf("%w: empty job description", ErrInvalidParameter)
	}

	response, err := e.completion.Complete(ctx, e.promptBuilder.BuildJobExtractionPrompt(jobDescription))
	if err != nil {
		return models.JobProfile{}, err
	}

	profile, _, err := e.parseProfile(response)
	if err != nil {
		return models.JobProfile{}, err
	}

	return models.JobProfile{Profile: profile}, nil
}

// ExtractCandidate implements StructuredExtractor.
func (e *structuredExtractor) ExtractCandidate(ctx context.Context, doc models.SourceDocument, text string) (models.CandidateProfile, error) {
	response, err := e.completion.Complete(ctx, e.promptBuilder.BuildCandidateExtractionPrompt(text))
	if err != nil {
		return models.CandidateProfile{}, err
	}

	profile, name, err := e.parseProfile(response)
	if err != nil {
		return models.CandidateProfile{}, err
	}

	if name == "" {
		name = candidateNameFallback(doc.Filename, text)
		e.log.Debug("🔍 Candidate name derived locally", zap.String("document_id", doc.ID), zap.String("name", name))
	}

	return models.CandidateProfile{
		Profile:          profile,
		CandidateName:    name,
		SourceDocumentID: doc.ID,
	}, nil
}

func (e *structuredExtractor) parseProfile(response string) (models.Profile, string, error) {
	jsonStr := extractJSON(response)

	result, err := e.schema.Validate(gojsonschema.NewStringLoader(jsonStr))
	if err != nil {
		e.log.Warn("❌ Extraction response is not JSON", zap.String("response", logger.TruncateForLog(response, 300)))
		return models.Profile{}, "", fmt.Errorf("%w: %v", ErrExtractionParse, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return models.Profile{}, "", fmt.Errorf("%w: %s", ErrExtractionParse, strings.Join(msgs, "; "))
	}

	var raw extractedProfile
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return models.Profile{}, "", fmt.Errorf("%w: %v", ErrExtractionParse, err)
	}

	seniority, err := models.ParseSeniority(raw.SeniorityLevel)
	if err != nil {
		return models.Profile{}, "", fmt.Errorf("%w: %v", ErrExtractionParse, err)
	}

	profile := models.Profile{
		Skills:           models.NewSkillSet(raw.Skills...),
		Tools:            models.NewSkillSet(raw.Tools...),
		YearsExperience:  raw.YearsExperience,
		Seniority:        seniority,
		Responsibilities: nonEmpty(raw.Responsibilities),
	}

	name := ""
	if raw.CandidateName != nil {
		name = strings.TrimSpace(*raw.CandidateName)
	}

	return profile, name, nil
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// extractJSON tries to extract a JSON object from text that might contain markdown or other formatting
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// candidateNameFallback uses a short alphabetic first line of the résumé,
// otherwise the file name.
func candidateNameFallback(filename, text string) string {
	firstLine, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	firstLine = strings.TrimSpace(firstLine)
	if looksLikeName(firstLine) {
		return cases.Title(language.Und).String(strings.ToLower(firstLine))
	}

	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	stem = strings.Join(strings.FieldsFunc(stem, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || unicode.IsSpace(r)
	}), " ")
	if stem == "" {
		return "Unknown"
	}
	return cases.Title(language.Und).String(stem)
}

func looksLikeName(line string) bool {
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, r := range line {
		if !unicode.IsLetter(r) && r != ' ' && r != '-' && r != '\'' && r != '.' {
			return false
		}
	}
	return true
}
