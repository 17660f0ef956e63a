package handlers

import (
	"bytes"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/talent-intake/internal/export"
	"alfredoptarigan/talent-intake/internal/models"
	"alfredoptarigan/talent-intake/internal/repositories"
	"alfredoptarigan/talent-intake/internal/services"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxSearchLimit  = 50
)

type CandidateHandler struct {
	candidateRepo repositories.CandidateRepository
	index         services.CandidateIndex
}

func NewCandidateHandler(candidateRepo repositories.CandidateRepository, index services.CandidateIndex) *CandidateHandler {
	return &CandidateHandler{
		candidateRepo: candidateRepo,
		index:         index,
	}
}

// HandleList handles GET /candidates
func (h *CandidateHandler) HandleList(c *fiber.Ctx) error {
	candidates, err := h.candidateRepo.FindAll()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load candidates",
		})
	}
	return c.JSON(candidates)
}

// HandleSearch handles GET /candidates/search?q=&limit=
func (h *CandidateHandler) HandleSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "q is required",
		})
	}

	if h.index == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Semantic search is not configured",
		})
	}

	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > maxSearchLimit {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("limit must be between 1 and %d", maxSearchLimit),
		})
	}

	matches, err := h.index.Search(c.UserContext(), query, limit)
	if err != nil {
		log.Printf("❌ Candidate search failed: %v\n", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Candidate search failed",
		})
	}

	found, err := h.candidateRepo.FindByIDs(services.MatchIDs(matches))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load candidates",
		})
	}

	byID := make(map[string]models.Candidate, len(found))
	for _, cand := range found {
		byID[cand.ID.String()] = cand
	}

	// Keep the vector store's ranking; matches deleted from the database are skipped.
	results := make([]models.CandidateSearchResult, 0, len(matches))
	for _, m := range matches {
		if cand, ok := byID[m.CandidateID.String()]; ok {
			results = append(results, models.CandidateSearchResult{Score: m.Score, Candidate: cand})
		}
	}

	return c.JSON(results)
}

// HandleExport handles GET /candidates/export
func (h *CandidateHandler) HandleExport(c *fiber.Ctx) error {
	candidates, err := h.candidateRepo.FindAll()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load candidates",
		})
	}

	var buf bytes.Buffer
	if err := export.WriteCandidates(&buf, candidates); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to build export: %v", err),
		})
	}

	filename := fmt.Sprintf("candidates_%s.xlsx", time.Now().Format("20060102"))
	return sendWorkbook(c, filename, buf.Bytes())
}

func sendWorkbook(c *fiber.Ctx, filename string, data []byte) error {
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(data)
}
