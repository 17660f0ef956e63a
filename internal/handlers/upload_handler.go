package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/talent-intake/internal/models"
	"alfredoptarigan/talent-intake/internal/services"
)

type UploadHandler struct {
	queue       services.UploadQueue
	validator   *validator.Validate
	maxFileSize int64
}

func NewUploadHandler(queue services.UploadQueue, maxFileSize int64) *UploadHandler {
	return &UploadHandler{
		queue:       queue,
		validator:   validator.New(),
		maxFileSize: maxFileSize,
	}
}

// HandleUpload handles POST /uploads. Every file in the "files" field is
// queued as its own item; the batch is rejected as a whole if any file is
// too large or of an unsupported type.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	var req models.UploadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validationMessage(err),
		})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No files uploaded. Send one or more PDF or image files in the 'files' field.",
		})
	}

	files := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > h.maxFileSize {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("%s is too large. Max size: %d bytes", fh.Filename, h.maxFileSize),
			})
		}

		file, err := readUpload(fh)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("failed to read %s: %v", fh.Filename, err),
			})
		}

		if !services.IsSupportedUpload(file.MimeType) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("%s has unsupported type %s. Upload PDF, JPEG, PNG, GIF, WebP, BMP or TIFF files.", fh.Filename, file.MimeType),
			})
		}

		files = append(files, file)
	}

	var targetJobID *uuid.UUID
	if req.JobID != "" {
		id := uuid.MustParse(req.JobID)
		targetJobID = &id
	}

	items := h.queue.Enqueue(files, targetJobID)
	log.Printf("📥 %d file(s) queued for ingestion\n", len(items))

	return c.Status(fiber.StatusAccepted).JSON(models.UploadResponse{Items: items})
}

// readUpload loads the file and settles its media type. A declared type is
// trusted unless it is missing or generic.
func readUpload(fh *multipart.FileHeader) (services.UploadFile, error) {
	f, err := fh.Open()
	if err != nil {
		return services.UploadFile{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return services.UploadFile{}, err
	}

	mimeType := strings.ToLower(strings.TrimSpace(strings.Split(fh.Header.Get("Content-Type"), ";")[0]))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimetype.Detect(data).String()
		if i := strings.Index(mimeType, ";"); i >= 0 {
			mimeType = mimeType[:i]
		}
	}

	return services.UploadFile{
		Name:     fh.Filename,
		MimeType: mimeType,
		Data:     data,
	}, nil
}

// HandleList handles GET /uploads.
func (h *UploadHandler) HandleList(c *fiber.Ctx) error {
	return c.JSON(models.UploadResponse{Items: h.queue.Snapshot()})
}

// HandleGet handles GET /uploads/:id.
func (h *UploadHandler) HandleGet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid upload ID format",
		})
	}

	item, ok := h.queue.Get(id)
	if !ok {
		return queueError(c, services.ErrItemNotFound)
	}
	return c.JSON(item)
}

// HandleForceSave handles POST /uploads/:id/force-save.
func (h *UploadHandler) HandleForceSave(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid upload ID format",
		})
	}

	item, err := h.queue.ForceSave(c.UserContext(), id)
	if err != nil {
		return queueError(c, err)
	}
	return c.JSON(item)
}

// HandleDiscard handles DELETE /uploads/:id.
func (h *UploadHandler) HandleDiscard(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid upload ID format",
		})
	}

	if err := h.queue.Discard(id); err != nil {
		return queueError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleClear handles DELETE /uploads.
func (h *UploadHandler) HandleClear(c *fiber.Ctx) error {
	return c.JSON(models.ClearResponse{Removed: h.queue.Clear()})
}

// HandleClearCompleted handles DELETE /uploads/completed.
func (h *UploadHandler) HandleClearCompleted(c *fiber.Ctx) error {
	return c.JSON(models.ClearResponse{Removed: h.queue.ClearCompleted()})
}

func queueError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotDuplicate), errors.Is(err, services.ErrItemBusy):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

// validationMessage reports the first failing field.
func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
	}
	return "validation error: invalid request"
}
