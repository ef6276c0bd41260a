package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/models"
	"alfredoptarigan/cv-ranker/internal/repositories"
	"alfredoptarigan/cv-ranker/internal/services"
)

type SessionHandler struct {
	sessions       services.SessionManager
	storageService services.StorageService
	sessionRepo    repositories.SessionRepository
	docRepo        repositories.DocumentRepository
	log            *zap.Logger
}

func NewSessionHandler(
	sessions services.SessionManager,
	storageService services.StorageService,
	sessionRepo repositories.SessionRepository,
	docRepo repositories.DocumentRepository,
	log *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessions:       sessions,
		storageService: storageService,
		sessionRepo:    sessionRepo,
		docRepo:        docRepo,
		log:            logger.OrNop(log),
	}
}

func parseSessionID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid session ID format")
	}
	return id, nil
}

// HandleGetResult handles GET /sessions/:id/result
func (h *SessionHandler) HandleGetResult(c *fiber.Ctx) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return errorResponse(c, err)
	}

	session, err := h.sessionRepo.FindByID(sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}
		return errorResponse(c, err)
	}

	response := models.SessionResultResponse{
		ID:     session.ID.String(),
		Status: string(session.Status),
	}

	if session.Status == models.StatusCompleted {
		docs, err := h.docRepo.FindBySession(sessionID)
		if err != nil {
			return errorResponse(c, err)
		}
		response.Result = fromRecords(session, docs)
	}

	if session.Status == models.StatusFailed && session.ErrorMessage != nil {
		response.ErrorMessage = session.ErrorMessage
	}

	return c.JSON(response)
}

// HandleDownload handles GET /sessions/:id/documents/:docID
func (h *SessionHandler) HandleDownload(c *fiber.Ctx) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return errorResponse(c, err)
	}

	docID, err := uuid.Parse(c.Params("docID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID format",
		})
	}

	doc, err := h.docRepo.FindByID(docID)
	if err != nil || doc.SessionID != sessionID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	}

	path, err := h.storageService.FilePath(sessionID.String(), doc.Filename)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Download(path, doc.OriginalFileName)
}

// HandleDelete handles DELETE /sessions/:id
func (h *SessionHandler) HandleDelete(c *fiber.Ctx) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return errorResponse(c, err)
	}

	if _, err := h.sessionRepo.FindByID(sessionID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}
		return errorResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 30*time.Second)
	defer cancel()

	if err := h.sessions.Teardown(ctx, sessionID.String()); err != nil {
		return errorResponse(c, err)
	}

	if err := h.sessionRepo.Delete(sessionID); err != nil {
		return errorResponse(c, err)
	}

	h.log.Info("🗑️ Session deleted", zap.String("session_id", sessionID.String()))

	return c.JSON(fiber.Map{
		"message":    "Session deleted",
		"session_id": sessionID.String(),
	})
}
