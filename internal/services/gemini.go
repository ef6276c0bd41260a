package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"alfredoptarigan/cv-ranker/internal/logger"
)

// CompletionService is the text-completion side of the language model.
type CompletionService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EmbeddingService turns text into a vector.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type GeminiService interface {
	CompletionService
	EmbeddingService
}

type GeminiOptions struct {
	APIKey      string
	Model       string
	EmbedModel  string
	Temperature float32
}

type geminiService struct {
	client      *genai.Client
	modelName   string
	embedModel  string
	temperature float32
	log         *zap.Logger
}

func NewGeminiService(ctx context.Context, opts GeminiOptions, log *zap.Logger) (GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiService{
		client:      client,
		modelName:   opts.Model,
		embedModel:  opts.EmbedModel,
		temperature: opts.Temperature,
		log:         logger.OrNop(log),
	}, nil
}

// maxEmbedChars keeps embedding input under the model's token limit.
const maxEmbedChars = 40000

// Embed implements EmbeddingService.
func (g *geminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbedChars {
		text = strings.ToValidUTF8(text[:maxEmbedChars], "")
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingServiceUnavailable, err)
	}

	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, fmt.Errorf("%w: empty embedding result", ErrEmbeddingServiceUnavailable)
	}

	return result.Embeddings[0].Values, nil
}

// Complete implements CompletionService.
func (g *geminiService) Complete(ctx context.Context, prompt string) (string, error) {
	temperature := g.temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		g.log.Warn("❌ Gemini API error", zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrCompletionServiceUnavailable, err)
	}

	if resp == nil {
		return "", fmt.Errorf("%w: nil response", ErrCompletionServiceUnavailable)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		g.log.Warn("❌ No text content in Gemini response", zap.Int("candidates", len(resp.Candidates)))
		return "", fmt.Errorf("%w: empty response", ErrCompletionServiceUnavailable)
	}

	g.log.Debug("📊 Gemini response received",
		zap.Int("prompt_chars", len(prompt)),
		zap.String("response", logger.TruncateForLog(text, 200)),
	)

	return text, nil
}
