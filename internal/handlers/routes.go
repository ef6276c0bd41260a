package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, rank *RankHandler, sessions *SessionHandler) {
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/rank", rank.HandleRank)
	api.Get("/sessions/:id/result", sessions.HandleGetResult)
	api.Get("/sessions/:id/documents/:docID", sessions.HandleDownload)
	api.Delete("/sessions/:id", sessions.HandleDelete)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "CV Ranker API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/rank",
				"GET /api/v1/sessions/:id/result",
				"GET /api/v1/sessions/:id/documents/:docID",
				"DELETE /api/v1/sessions/:id",
				"GET /api/v1/health",
			},
		})
	})
}
