package services

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

// Embedder generates vector fingerprints for listing descriptions. The
// grouper treats a failing embedder as a soft error.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbeddingService generates embeddings using Google's Gemini API
type EmbeddingService struct {
	client *genai.Client
	model  string
}

// NewEmbeddingService creates a new Gemini-backed embedding service
func NewEmbeddingService(apiKey, model string) (*EmbeddingService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &EmbeddingService{client: client, model: model}, nil
}

// Embed generates an embedding for a single text
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float64, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := s.client.Models.EmbedContent(ctx,
		s.model,
		contents,
		&genai.EmbedContentConfig{
			TaskType: "CLUSTERING",
		},
	)
	if err != nil {
		return nil, models.NewExternalServiceError("embedding", err)
	}

	if len(result.Embeddings) == 0 {
		return nil, models.NewExternalServiceError("embedding", fmt.Errorf("no embeddings returned"))
	}

	values := result.Embeddings[0].Values
	embedding := make([]float64, len(values))
	for i, v := range values {
		embedding[i] = float64(v)
	}
	return embedding, nil
}
