package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/models"
	"alfredoptarigan/cv-ranker/internal/repositories"
	"alfredoptarigan/cv-ranker/internal/services"
)

type RankHandlerOptions struct {
	DefaultTopN int
	MaxFiles    int
	MaxFileSize int64
}

type RankHandler struct {
	sessions       services.SessionManager
	storageService services.StorageService
	rankingService services.RankingService
	sessionRepo    repositories.SessionRepository
	docRepo        repositories.DocumentRepository
	opts           RankHandlerOptions
	log            *zap.Logger
}

func NewRankHandler(
	sessions services.SessionManager,
	storageService services.StorageService,
	rankingService services.RankingService,
	sessionRepo repositories.SessionRepository,
	docRepo repositories.DocumentRepository,
	opts RankHandlerOptions,
	log *zap.Logger,
) *RankHandler {
	return &RankHandler{
		sessions:       sessions,
		storageService: storageService,
		rankingService: rankingService,
		sessionRepo:    sessionRepo,
		docRepo:        docRepo,
		opts:           opts,
		log:            logger.OrNop(log),
	}
}

// HandleRank handles POST /rank
func (h *RankHandler) HandleRank(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	jobDescription := strings.TrimSpace(c.FormValue("job_description"))
	if jobDescription == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "job_description is required",
		})
	}

	topN := h.opts.DefaultTopN
	if raw := strings.TrimSpace(c.FormValue("top_n")); raw != "" {
		topN, err = strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "top_n must be an integer",
			})
		}
	}
	if err := services.ValidateTopN(topN); err != nil {
		return errorResponse(c, err)
	}

	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "at least one CV must be uploaded in 'files'",
		})
	}
	if h.opts.MaxFiles > 0 && len(files) > h.opts.MaxFiles {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("too many files: %d, max %d", len(files), h.opts.MaxFiles),
		})
	}

	for _, file := range files {
		if _, err := services.FormatFromFilename(file.Filename); err != nil {
			return errorResponse(c, fmt.Errorf("%s: %w", file.Filename, err))
		}
		if h.opts.MaxFileSize > 0 && file.Size > h.opts.MaxFileSize {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("%s is too large. Max size: %d bytes", file.Filename, h.opts.MaxFileSize),
			})
		}
	}

	sessionID, err := h.sessions.Create()
	if err != nil {
		return errorResponse(c, err)
	}
	sessionUUID := uuid.MustParse(sessionID)

	session := &models.RankingSession{
		ID:             sessionUUID,
		JobDescription: jobDescription,
		TopN:           topN,
		Status:         models.StatusQueued,
	}
	if err := h.sessionRepo.Create(session); err != nil {
		h.discard(sessionID)
		return errorResponse(c, err)
	}

	documents := make([]models.SourceDocument, 0, len(files))
	for i, file := range files {
		stored, err := h.storageService.SaveFile(sessionID, file)
		if err != nil {
			return h.fail(c, sessionUUID, fmt.Errorf("failed to save %s: %w", file.Filename, err))
		}

		doc := models.Document{
			ID:               uuid.New(),
			SessionID:        sessionUUID,
			UploadOrder:      i,
			Filename:         stored.Filename,
			OriginalFileName: file.Filename,
			Format:           stored.Format,
			FilePath:         stored.FilePath,
			CreatedAt:        time.Now(),
			UpdatedAt:        time.Now(),
		}
		if err := h.docRepo.Create(&doc); err != nil {
			return h.fail(c, sessionUUID, err)
		}

		data, err := h.storageService.ReadFile(sessionID, stored.Filename)
		if err != nil {
			return h.fail(c, sessionUUID, err)
		}

		documents = append(documents, models.SourceDocument{
			ID:       doc.ID.String(),
			Filename: file.Filename,
			Format:   stored.Format,
			Data:     data,
		})
	}

	if err := h.sessionRepo.UpdateStatus(sessionUUID, models.StatusProcessing); err != nil {
		return h.fail(c, sessionUUID, err)
	}

	release, err := h.sessions.Acquire(sessionID)
	if err != nil {
		return h.fail(c, sessionUUID, err)
	}
	result, err := h.rankingService.Rank(c.UserContext(), services.RankingRequest{
		SessionID:      sessionID,
		JobDescription: jobDescription,
		Documents:      documents,
		TopN:           topN,
	})
	release()
	if err != nil {
		return h.fail(c, sessionUUID, err)
	}

	records, failures := toRecords(result)
	if err := h.sessionRepo.SaveResult(sessionUUID, &repositories.SessionResultData{
		TotalCandidates:       result.TotalCandidates,
		ProcessingTimeSeconds: result.ProcessingTimeSeconds,
		Results:               records,
		Failures:              failures,
	}); err != nil {
		h.log.Error("❌ Failed to persist ranking result", zap.String("session_id", sessionID), zap.Error(err))
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(buildRankResponse(result))
}

// fail records the error on the session and reclaims its files and vectors.
// The session lock must not be held.
func (h *RankHandler) fail(c *fiber.Ctx, sessionID uuid.UUID, err error) error {
	h.log.Warn("❌ Ranking request failed", zap.String("session_id", sessionID.String()), zap.Error(err))

	if updateErr := h.sessionRepo.UpdateError(sessionID, err.Error()); updateErr != nil {
		h.log.Warn("⚠️ Failed to record session error", zap.Error(updateErr))
	}
	h.discard(sessionID.String())

	return errorResponse(c, err)
}

func (h *RankHandler) discard(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := h.sessions.Teardown(ctx, sessionID); err != nil {
		h.log.Warn("⚠️ Failed to tear down session", zap.String("session_id", sessionID), zap.Error(err))
	}
}
