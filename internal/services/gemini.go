package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model answers without any text,
// typically because it declined the request.
var ErrEmptyResponse = errors.New("model returned no content")

// Attachment is an inline binary sent alongside a prompt.
type Attachment struct {
	Data     []byte
	MimeType string
}

type GeminiService interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateJSON(ctx context.Context, prompt string, attachment *Attachment, temperature float32) (string, error)
	GenerateJSONWithRetry(ctx context.Context, prompt string, attachment *Attachment, temperature float32) (string, error)
}

type geminiService struct {
	client       *genai.Client
	modelName    string
	embedModel   string
	maxRetries   int
	initialDelay time.Duration
}

type GeminiOptions struct {
	APIKey       string
	Model        string
	EmbedModel   string
	MaxRetries   int
	InitialDelay time.Duration
}

func NewGeminiService(ctx context.Context, opts GeminiOptions) (GeminiService, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}

	return &geminiService{
		client:       client,
		modelName:    opts.Model,
		embedModel:   opts.EmbedModel,
		maxRetries:   opts.MaxRetries,
		initialDelay: opts.InitialDelay,
	}, nil
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	// Truncate text if too long (max ~10000 tokens for embedding)
	if len(text) > 40000 {
		text = text[:40000]
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// GenerateJSON implements GeminiService.
func (g *geminiService) GenerateJSON(ctx context.Context, prompt string, attachment *Attachment, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  4096,
		ResponseMIMEType: "application/json",
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if attachment != nil && len(attachment.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(attachment.Data, attachment.MimeType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil {
		return "", fmt.Errorf("%w (nil response)", ErrEmptyResponse)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		reason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			reason = string(resp.Candidates[0].FinishReason)
		}
		return "", fmt.Errorf("%w (finish reason: %s)", ErrEmptyResponse, reason)
	}

	return text, nil
}

// GenerateJSONWithRetry implements GeminiService. Declined requests are not
// retried since asking again yields the same answer.
func (g *geminiService) GenerateJSONWithRetry(ctx context.Context, prompt string, attachment *Attachment, temperature float32) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		result, err := g.GenerateJSON(ctx, prompt, attachment, temperature)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if errors.Is(err, ErrEmptyResponse) {
			break
		}

		if attempt < g.maxRetries {
			log.Printf("⚠️ Attempt %d failed: %v. Retrying...\n", attempt, err)

			select {
			case <-ctx.Done():
				return "", fmt.Errorf("context cancelled: %w", ctx.Err())
			case <-time.After(g.initialDelay * time.Duration(attempt)):
			}
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", g.maxRetries, lastErr)
}

// IsDegradableError reports whether a model failure should produce a
// placeholder result instead of an error: quota exhaustion, rate limiting
// and refusals.
func IsDegradableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests ||
			strings.EqualFold(apiErr.Status, "RESOURCE_EXHAUSTED")
	}

	// Errors that never reached the API carry no status code.
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"resource_exhausted", "resourceexhausted", "quota", "rate limit"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// extractJSON tries to extract JSON from text that might contain markdown or other formatting
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")
	endObj := strings.LastIndex(text, "}")
	endArr := strings.LastIndex(text, "]")

	if startObj != -1 && endObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	} else if startArr != -1 && endArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}

	return text
}
