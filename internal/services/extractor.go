package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"alfredoptarigan/talent-intake/internal/models"
)

// FallbackSummaryPrefix marks candidates produced by the extraction fallback.
const FallbackSummaryPrefix = "[AUTO-EXTRACTION FAILED]"

// ExtractionResult distinguishes a real extraction from a placeholder.
// Hard failures are reported through the error return instead.
type ExtractionResult struct {
	Candidate      models.ParsedCandidate
	Degraded       bool
	DegradedReason string
}

// CVExtractor turns a CV payload into structured candidate fields.
type CVExtractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (*ExtractionResult, error)
}

type cvExtractor struct {
	geminiService GeminiService
	pdfParser     PDFParserService
	promptBuilder *PromptBuilder
}

func NewCVExtractor(geminiService GeminiService, pdfParser PDFParserService) CVExtractor {
	return &cvExtractor{
		geminiService: geminiService,
		pdfParser:     pdfParser,
		promptBuilder: NewPromptBuilder(),
	}
}

// Extract implements CVExtractor. Quota exhaustion and refusals yield a
// placeholder; transport failures and unparseable answers are errors.
func (e *cvExtractor) Extract(ctx context.Context, data []byte, mimeType string) (*ExtractionResult, error) {
	var textLayer string
	if IsPDF(mimeType) && e.pdfParser != nil {
		content, err := e.pdfParser.ExtractText(data)
		if err != nil {
			log.Printf("⚠️  No usable PDF text layer: %v\n", err)
		} else {
			textLayer = content.Text
		}
	}

	prompt := e.promptBuilder.BuildCVExtractionPrompt(textLayer)

	response, err := e.geminiService.GenerateJSONWithRetry(ctx, prompt, &Attachment{Data: data, MimeType: mimeType}, 0.1)
	if err != nil {
		if IsDegradableError(err) {
			log.Printf("⚠️  CV extraction degraded: %v\n", err)
			return placeholderExtraction(err.Error()), nil
		}
		return nil, fmt.Errorf("failed to extract CV: %w", err)
	}

	var parsed models.ParsedCandidate
	if err := json.Unmarshal([]byte(extractJSON(response)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse CV extraction response: %w", err)
	}

	normalizeParsed(&parsed)

	return &ExtractionResult{Candidate: parsed}, nil
}

func normalizeParsed(p *models.ParsedCandidate) {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	if p.Age < 0 {
		p.Age = 0
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Benefits == nil {
		p.Benefits = []string{}
	}
	if len(p.FaceBox) != 4 {
		p.FaceBox = nil
	}
}

// placeholderExtraction keeps every required field readable. The name carries
// a short unique suffix so that several failed extractions are not reported
// as duplicates of each other.
func placeholderExtraction(reason string) *ExtractionResult {
	return &ExtractionResult{
		Candidate: models.ParsedCandidate{
			FullName: "Unparsed CV " + uuid.NewString()[:8],
			Skills:   []string{},
			Benefits: []string{},
			Summary:  FallbackSummaryPrefix + " The CV could not be analysed automatically. Please review the original file and fill in the details manually.",
		},
		Degraded:       true,
		DegradedReason: reason,
	}
}
