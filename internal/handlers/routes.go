package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the API under /api/v1.
func RegisterRoutes(app *fiber.App, uploads *UploadHandler, candidates *CandidateHandler, jobs *JobHandler) {
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// /uploads/completed must be registered before /uploads/:id
	api.Post("/uploads", uploads.HandleUpload)
	api.Get("/uploads", uploads.HandleList)
	api.Delete("/uploads", uploads.HandleClear)
	api.Delete("/uploads/completed", uploads.HandleClearCompleted)
	api.Get("/uploads/:id", uploads.HandleGet)
	api.Post("/uploads/:id/force-save", uploads.HandleForceSave)
	api.Delete("/uploads/:id", uploads.HandleDiscard)

	api.Get("/candidates", candidates.HandleList)
	api.Get("/candidates/search", candidates.HandleSearch)
	api.Get("/candidates/export", candidates.HandleExport)

	api.Post("/jobs", jobs.HandleCreate)
	api.Get("/jobs", jobs.HandleList)
	api.Get("/jobs/:id/applications", jobs.HandleApplications)
	api.Get("/jobs/:id/applications/export", jobs.HandleExportShortlist)
}

// ErrorHandler renders errors returned from handlers as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
