package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/config"
	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/models"
	"alfredoptarigan/cv-ranker/internal/services"
)

var rootCmd = &cobra.Command{
	Use:   "rank_documents --jd <job description file> <cv files...>",
	Short: "Rank local CV files against a job description",
	Args:  cobra.MinimumNArgs(1),
	RunE:  run,
}

func init() {
	rootCmd.Flags().String("jd", "", "job description file (.txt, .md, .pdf, .doc, .docx)")
	rootCmd.Flags().IntP("top-n", "n", 0, "number of candidates to return (default RANKING_DEFAULT_TOP_N)")
	rootCmd.Flags().String("backend", "", "vector store backend override: qdrant or memory")
	rootCmd.MarkFlagRequired("jd")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.Vector.Backend = backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	topN, _ := cmd.Flags().GetInt("top-n")
	if topN == 0 {
		topN = cfg.Ranking.DefaultTopN
	}

	zl, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer zl.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	zl.Info("🚀 Starting local ranking", zap.Int("files", len(args)), zap.String("backend", cfg.Vector.Backend))

	normalizer := services.NewDocumentNormalizer()

	jdPath, _ := cmd.Flags().GetString("jd")
	jobDescription, err := readJobDescription(normalizer, jdPath)
	if err != nil {
		return err
	}

	geminiService, err := services.NewGeminiService(ctx, services.GeminiOptions{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		EmbedModel:  cfg.Gemini.EmbedModel,
		Temperature: 0.2,
	}, zl)
	if err != nil {
		return fmt.Errorf("failed to initialize Gemini: %w", err)
	}

	var store services.VectorStore
	if cfg.Vector.Backend == "memory" {
		store = services.NewMemoryStore()
	} else {
		store, err = services.NewQdrantStore(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, cfg.Qdrant.VectorSize, zl)
		if err != nil {
			return err
		}
		if err := store.EnsureCollection(ctx); err != nil {
			return err
		}
	}

	extractor, err := services.NewStructuredExtractor(geminiService, zl)
	if err != nil {
		return err
	}

	ranking := services.NewRankingService(
		normalizer,
		services.NewTextChunker(cfg.Ranking.ChunkTokens, cfg.Ranking.ChunkOverlapTokens),
		extractor,
		services.NewEmbedder(geminiService, cfg.Qdrant.VectorSize, zl),
		store,
		geminiService,
		services.RankingOptions{
			Workers:        cfg.Ranking.Workers,
			QueryTopK:      cfg.Ranking.QueryTopK,
			CallTimeout:    cfg.Ranking.CallTimeout,
			ExplainTimeout: cfg.Ranking.ExplainTimeout,
		},
		zl,
	)

	storage := services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.MaxFileSize)
	if err := storage.EnsureUploadDir(); err != nil {
		return err
	}
	sessions := services.NewSessionManager(storage, store, zl)

	sessionID, err := sessions.Create()
	if err != nil {
		return err
	}
	defer func() {
		if err := sessions.Teardown(context.Background(), sessionID); err != nil {
			zl.Warn("⚠️ Failed to clean up session", zap.Error(err))
		}
	}()

	documents := make([]models.SourceDocument, 0, len(args))
	for _, path := range args {
		format, err := services.FormatFromFilename(path)
		if err != nil {
			zl.Warn("⚠️ Skipping file", zap.String("path", path), zap.Error(err))
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			zl.Warn("⚠️ Skipping unreadable file", zap.String("path", path), zap.Error(err))
			continue
		}
		if cfg.Storage.MaxFileSize > 0 && int64(len(data)) > cfg.Storage.MaxFileSize {
			zl.Warn("⚠️ Skipping file over size limit", zap.String("path", path), zap.Int("bytes", len(data)))
			continue
		}

		documents = append(documents, models.SourceDocument{
			ID:       uuid.New().String(),
			Filename: filepath.Base(path),
			Format:   format,
			Data:     data,
		})
	}

	release, err := sessions.Acquire(sessionID)
	if err != nil {
		return err
	}
	result, err := ranking.Rank(ctx, services.RankingRequest{
		SessionID:      sessionID,
		JobDescription: jobDescription,
		Documents:      documents,
		TopN:           topN,
	})
	release()
	if err != nil {
		return fmt.Errorf("ranking failed: %w", err)
	}

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))

	zl.Info("✅ Ranking finished",
		zap.Int("total_candidates", result.TotalCandidates),
		zap.Int("failures", len(result.Failures)),
	)
	return nil
}

func readJobDescription(normalizer services.DocumentNormalizer, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read job description: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".txt" || ext == ".md" {
		return services.CleanText(string(data)), nil
	}

	format, err := services.FormatFromFilename(path)
	if err != nil {
		return "", err
	}
	return normalizer.Normalize(data, format)
}
