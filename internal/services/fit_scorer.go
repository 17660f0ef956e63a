package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"alfredoptarigan/talent-intake/internal/models"
)

const (
	neutralFitScore      = 50
	fallbackFitReasoning = "[AUTO-SCORING FAILED] Fit could not be assessed automatically; neutral score assigned."
)

// FitScorer rates a candidate against a job on a 0-100 scale.
type FitScorer interface {
	Score(ctx context.Context, candidate models.ParsedCandidate, job models.Job) (*models.FitEvaluation, error)
}

type fitScorer struct {
	geminiService GeminiService
	promptBuilder *PromptBuilder
}

func NewFitScorer(geminiService GeminiService) FitScorer {
	return &fitScorer{
		geminiService: geminiService,
		promptBuilder: NewPromptBuilder(),
	}
}

// Score implements FitScorer.
func (s *fitScorer) Score(ctx context.Context, candidate models.ParsedCandidate, job models.Job) (*models.FitEvaluation, error) {
	prompt := s.promptBuilder.BuildFitScorePrompt(candidate, job)

	response, err := s.geminiService.GenerateJSONWithRetry(ctx, prompt, nil, 0.3)
	if err != nil {
		if IsDegradableError(err) {
			log.Printf("⚠️  Fit scoring degraded: %v\n", err)
			return &models.FitEvaluation{Score: neutralFitScore, Reasoning: fallbackFitReasoning, Degraded: true}, nil
		}
		return nil, fmt.Errorf("failed to score fit: %w", err)
	}

	var result models.FitEvaluation
	if err := json.Unmarshal([]byte(extractJSON(response)), &result); err != nil {
		log.Printf("⚠️  Unparseable fit score response: %v\n", err)
		return &models.FitEvaluation{Score: neutralFitScore, Reasoning: fallbackFitReasoning, Degraded: true}, nil
	}

	result.Score = clampInt(result.Score, 0, 100)
	result.Degraded = false

	return &result, nil
}
