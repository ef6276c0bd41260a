package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-ranker/internal/repositories"
	"alfredoptarigan/cv-ranker/internal/services"
)

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, services.ErrInvalidParameter),
		errors.Is(err, services.ErrUnsupportedFormat),
		errors.Is(err, services.ErrFileTooLarge):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, repositories.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrExtractionParse),
		errors.Is(err, services.ErrCorruptDocument):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrVectorStoreUnavailable),
		errors.Is(err, services.ErrCompletionServiceUnavailable),
		errors.Is(err, services.ErrEmbeddingServiceUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(StatusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}
