package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/talent-intake/internal/models"
)

// maxTextLayerChars caps the PDF text hint appended to extraction prompts.
const maxTextLayerChars = 20000

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildCVExtractionPrompt creates the prompt sent with an attached CV file.
func (pb *PromptBuilder) BuildCVExtractionPrompt(textLayer string) string {
	var sb strings.Builder
	sb.WriteString(`You are an expert HR assistant. Extract the candidate's details from the attached CV.

Return ONLY a JSON object in the following format:
{
  "full_name": "<full name>",
  "email": "<email address or empty string>",
  "phone": "<phone number or empty string>",
  "age": <age in years as integer, 0 if unknown>,
  "skills": ["<skill>", "..."],
  "summary": "<2-3 sentence professional summary>",
  "current_company": "<current employer or empty string>",
  "current_role": "<current job title or empty string>",
  "salary_band": "<current or expected salary if stated, else empty string>",
  "benefits": ["<benefit mentioned as current or expected>", "..."],
  "face_box": [<ymin>, <xmin>, <ymax>, <xmax>]
}

"face_box" is the bounding box of the candidate's photo face on the first page, with coordinates
normalized to 0-1000 relative to the page height (y) and width (x). Omit "face_box" entirely when
the CV contains no photo of a person.

Do not invent information that is not present in the CV.`)

	if textLayer = strings.TrimSpace(textLayer); textLayer != "" {
		if len(textLayer) > maxTextLayerChars {
			textLayer = textLayer[:maxTextLayerChars]
		}
		sb.WriteString("\n\nEMBEDDED TEXT OF THE CV (may be incomplete, use it to check spelling of names and emails):\n")
		sb.WriteString(textLayer)
	}

	return sb.String()
}

// BuildFitScorePrompt creates the prompt rating a candidate against a job.
func (pb *PromptBuilder) BuildFitScorePrompt(candidate models.ParsedCandidate, job models.Job) string {
	return fmt.Sprintf(`You are an expert technical recruiter assessing how well a candidate fits a %s position.

JOB DESCRIPTION:
Title: %s
Department: %s
Location: %s
%s

REQUIREMENTS:
%s

CANDIDATE:
Name: %s
Current role: %s at %s
Skills: %s
Summary: %s

Rate the fit from 0 (no fit) to 100 (perfect fit).

Return your response in the following JSON format:
{
  "score": <integer 0-100>,
  "reasoning": "<2-3 sentences naming the main strengths and gaps>"
}`,
		job.Title,
		job.Title, job.Department, job.Location, job.Description,
		bulletList(job.Requirements),
		candidate.FullName, candidate.CurrentRole, candidate.CurrentCompany,
		strings.Join(candidate.Skills, ", "), candidate.Summary)
}

// BuildCandidateEmbeddingText flattens a candidate into the text indexed for
// semantic search.
func (pb *PromptBuilder) BuildCandidateEmbeddingText(c *models.Candidate) string {
	parts := []string{c.FullName}
	if c.CurrentRole != "" {
		parts = append(parts, fmt.Sprintf("%s at %s", c.CurrentRole, c.CurrentCompany))
	}
	if len(c.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(c.Skills, ", "))
	}
	if c.Summary != "" {
		parts = append(parts, c.Summary)
	}
	return strings.Join(parts, "\n")
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- (none listed)"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}
