package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/talent-intake/internal/export"
	"alfredoptarigan/talent-intake/internal/models"
	"alfredoptarigan/talent-intake/internal/repositories"
)

type JobHandler struct {
	jobRepo   repositories.JobRepository
	appRepo   repositories.ApplicationRepository
	validator *validator.Validate
}

func NewJobHandler(jobRepo repositories.JobRepository, appRepo repositories.ApplicationRepository) *JobHandler {
	return &JobHandler{
		jobRepo:   jobRepo,
		appRepo:   appRepo,
		validator: validator.New(),
	}
}

// HandleCreate handles POST /jobs
func (h *JobHandler) HandleCreate(c *fiber.Ctx) error {
	var req models.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	req.Title = strings.TrimSpace(req.Title)
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validationMessage(err),
		})
	}

	requirements := req.Requirements
	if requirements == nil {
		requirements = []string{}
	}

	job := &models.Job{
		ID:           uuid.New(),
		Title:        req.Title,
		Department:   req.Department,
		Location:     req.Location,
		Description:  req.Description,
		Requirements: requirements,
		Status:       models.JobOpen,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := h.jobRepo.Create(job); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create job",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(job)
}

// HandleList handles GET /jobs
func (h *JobHandler) HandleList(c *fiber.Ctx) error {
	jobs, err := h.jobRepo.FindAll()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load jobs",
		})
	}
	return c.JSON(jobs)
}

// HandleApplications handles GET /jobs/:id/applications
func (h *JobHandler) HandleApplications(c *fiber.Ctx) error {
	job, err := h.findJob(c)
	if err != nil {
		return err
	}

	apps, err := h.appRepo.FindByJob(job.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load applications",
		})
	}

	return c.JSON(fiber.Map{
		"job":          job,
		"applications": apps,
	})
}

// HandleExportShortlist handles GET /jobs/:id/applications/export
func (h *JobHandler) HandleExportShortlist(c *fiber.Ctx) error {
	job, err := h.findJob(c)
	if err != nil {
		return err
	}

	apps, err := h.appRepo.FindByJob(job.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load applications",
		})
	}

	var buf bytes.Buffer
	if err := export.WriteShortlist(&buf, *job, apps); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to build export: %v", err),
		})
	}

	return sendWorkbook(c, fmt.Sprintf("shortlist_%s.xlsx", job.ID), buf.Bytes())
}

// findJob resolves :id. Failures come back as *fiber.Error for the app's
// error handler to render.
func (h *JobHandler) findJob(c *fiber.Ctx) (*models.Job, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid job ID format")
	}

	job, err := h.jobRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Job not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Failed to load job")
	}
	return job, nil
}
