package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-ranker/internal/models"
)

func newTestExtractor(t *testing.T, completion CompletionService) StructuredExtractor {
	t.Helper()
	e, err := NewStructuredExtractor(completion, nil)
	require.NoError(t, err)
	return e
}

func TestExtractJob_FencedJSON(t *testing.T) {
	completion := new(MockCompletion)
	completion.On("Complete", mock.Anything, mock.Anything).Return("Here you go:\n```json\n{\"skills\": [\"Go\", \" go \", \"SQL\"], \"tools\": null, \"years_experience\": 5, \"seniority_level\": \"Senior\"}\n```", nil)

	job, err := newTestExtractor(t, completion).ExtractJob(context.Background(), "Senior Go engineer, 5+ years")
	require.NoError(t, err)

	assert.Equal(t, models.SkillSet{"Go", "SQL"}, job.Skills)
	assert.Empty(t, job.Tools)
	assert.Equal(t, 5.0, job.YearsExperience)
	assert.Equal(t, models.SenioritySenior, job.Seniority)
	assert.Empty(t, job.Responsibilities)
	completion.AssertExpectations(t)
}

func TestExtractJob_EmptyDescription(t *testing.T) {
	completion := new(MockCompletion)

	_, err := newTestExtractor(t, completion).ExtractJob(context.Background(), "   \n")
	assert.ErrorIs(t, err, ErrInvalidParameter)
	completion.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestExtractJob_ParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "not json", response: "I cannot help with that."},
		{name: "missing seniority", response: `{"skills": ["Go"], "years_experience": 3}`},
		{name: "missing years", response: `{"skills": ["Go"], "seniority_level": "mid"}`},
		{name: "unknown seniority", response: `{"years_experience": 3, "seniority_level": "wizard"}`},
		{name: "negative years", response: `{"years_experience": -2, "seniority_level": "mid"}`},
		{name: "skills not strings", response: `{"skills": [1, 2], "years_experience": 3, "seniority_level": "mid"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completion := new(MockCompletion)
			completion.On("Complete", mock.Anything, mock.Anything).Return(tt.response, nil)

			_, err := newTestExtractor(t, completion).ExtractJob(context.Background(), "Backend engineer")
			assert.ErrorIs(t, err, ErrExtractionParse)
		})
	}
}

func TestExtractJob_CompletionError(t *testing.T) {
	completion := new(MockCompletion)
	upstream := errors.New("quota exceeded")
	completion.On("Complete", mock.Anything, mock.Anything).
		Return("", errors.Join(ErrCompletionServiceUnavailable, upstream))

	_, err := newTestExtractor(t, completion).ExtractJob(context.Background(), "Backend engineer")
	assert.ErrorIs(t, err, ErrCompletionServiceUnavailable)
	assert.ErrorIs(t, err, upstream)
}

func TestExtractCandidate(t *testing.T) {
	doc := models.SourceDocument{ID: "doc-1", Filename: "jane_doe.pdf", Format: models.FormatPDF}

	t.Run("name from response", func(t *testing.T) {
		completion := new(MockCompletion)
		completion.On("Complete", mock.Anything, mock.Anything).
			Return(`{"candidate_name": " Jane Doe ", "skills": ["Python"], "tools": ["Docker"], "years_experience": 6, "seniority_level": "sr", "responsibilities": ["Built APIs", ""]}`, nil)

		got, err := newTestExtractor(t, completion).ExtractCandidate(context.Background(), doc, "JANE DOE\nPython developer")
		require.NoError(t, err)

		assert.Equal(t, "Jane Doe", got.CandidateName)
		assert.Equal(t, "doc-1", got.SourceDocumentID)
		assert.Equal(t, models.SkillSet{"Python"}, got.Skills)
		assert.Equal(t, models.SkillSet{"Docker"}, got.Tools)
		assert.Equal(t, models.SenioritySenior, got.Seniority)
		assert.Equal(t, []string{"Built APIs"}, got.Responsibilities)
	})

	t.Run("name from first line", func(t *testing.T) {
		completion := new(MockCompletion)
		completion.On("Complete", mock.Anything, mock.Anything).
			Return(`{"candidate_name": null, "years_experience": 2, "seniority_level": "junior"}`, nil)

		got, err := newTestExtractor(t, completion).ExtractCandidate(context.Background(), doc, "JANE DOE\nPython developer")
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", got.CandidateName)
	})
}

func TestCandidateNameFallback(t *testing.T) {
	assert.Equal(t, "Mary Ann Smith", candidateNameFallback("cv.pdf", "MARY ANN SMITH\nEngineer"))
	assert.Equal(t, "John Smith Cv", candidateNameFallback("john_smith-cv.pdf", "Résumé: 2024\nEngineer"))
	assert.Equal(t, "John Smith Cv", candidateNameFallback("uploads/john_smith-cv.docx", "Experienced engineer with a decade of Go"))
	assert.Equal(t, "Unknown", candidateNameFallback("", ""))
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, extractJSON("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": {"b": 2}}`, extractJSON(`prefix {"a": {"b": 2}} suffix`))
	assert.Equal(t, "nothing here", extractJSON("  nothing here  "))
}
