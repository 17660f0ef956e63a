package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"alfredoptarigan/talent-intake/internal/models"
)

const defaultSearchLimit = 10

// CandidateIndex embeds candidates into the vector store and answers free
// text queries against it.
type CandidateIndex interface {
	IndexCandidate(ctx context.Context, candidate *models.Candidate) error
	Search(ctx context.Context, query string, limit int) ([]VectorMatch, error)
}

type candidateIndex struct {
	geminiService GeminiService
	store         CandidateVectorStore
	promptBuilder *PromptBuilder
}

func NewCandidateIndex(geminiService GeminiService, store CandidateVectorStore) CandidateIndex {
	return &candidateIndex{
		geminiService: geminiService,
		store:         store,
		promptBuilder: NewPromptBuilder(),
	}
}

// IndexCandidate implements CandidateIndex.
func (i *candidateIndex) IndexCandidate(ctx context.Context, candidate *models.Candidate) error {
	text := i.promptBuilder.BuildCandidateEmbeddingText(candidate)

	embedding, err := i.geminiService.GenerateEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed candidate: %w", err)
	}

	return i.store.UpsertCandidate(ctx, candidate.ID, candidate.FullName, text, embedding)
}

// Search implements CandidateIndex.
func (i *candidateIndex) Search(ctx context.Context, query string, limit int) ([]VectorMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	embedding, err := i.geminiService.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return i.store.SearchCandidates(ctx, embedding, limit)
}

// MatchIDs returns the candidate IDs of matches in rank order.
func MatchIDs(matches []VectorMatch) []uuid.UUID {
	ids := make([]uuid.UUID, len(matches))
	for i, m := range matches {
		ids[i] = m.CandidateID
	}
	return ids
}
