package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// CandidateVectorStore keeps one embedding per candidate for semantic search.
type CandidateVectorStore interface {
	InitCollection(ctx context.Context) error
	UpsertCandidate(ctx context.Context, candidateID uuid.UUID, fullName, text string, embedding []float32) error
	SearchCandidates(ctx context.Context, queryEmbedding []float32, limit int) ([]VectorMatch, error)
}

type VectorMatch struct {
	CandidateID uuid.UUID
	FullName    string
	Score       float32
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

func NewQdrantService(urlStr, apiKey, collectionName string, vectorSize uint64) (CandidateVectorStore, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// For gRPC client, use port 6334 by default (gRPC port)
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     vectorSize,
	}, nil
}

// InitCollection implements CandidateVectorStore.
func (q *qdrantService) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		log.Printf("✅ Qdrant collection '%s' already exists\n", q.collectionName)
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("✅ Qdrant collection '%s' created successfully\n", q.collectionName)
	return nil
}

// UpsertCandidate implements CandidateVectorStore. The point ID is the
// candidate ID, so indexing the same candidate twice overwrites.
func (q *qdrantService) UpsertCandidate(ctx context.Context, candidateID uuid.UUID, fullName, text string, embedding []float32) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(candidateID.String()),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			"candidate_id": candidateID.String(),
			"full_name":    fullName,
			"text":         text,
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert candidate vector: %w", err)
	}

	return nil
}

// SearchCandidates implements CandidateVectorStore.
func (q *qdrantService) SearchCandidates(ctx context.Context, queryEmbedding []float32, limit int) ([]VectorMatch, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var matches []VectorMatch
	for _, point := range points {
		match := VectorMatch{Score: point.Score}

		if v, ok := point.Payload["candidate_id"]; ok {
			id, err := uuid.Parse(v.GetStringValue())
			if err != nil {
				continue
			}
			match.CandidateID = id
		} else {
			continue
		}

		if v, ok := point.Payload["full_name"]; ok {
			match.FullName = v.GetStringValue()
		}

		matches = append(matches, match)
	}

	return matches, nil
}
