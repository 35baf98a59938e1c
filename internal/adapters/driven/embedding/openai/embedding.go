// Package openai implements the embedding port against the OpenAI
// embeddings API.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
)

// DefaultModel is used when no embedding model is configured.
const DefaultModel = "text-embedding-3-small"

// maxBatchSize is the largest input list a single embeddings request takes.
const maxBatchSize = 100

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// Service calls the OpenAI embeddings API.
type Service struct {
	client openai.Client
	model  string
}

// NewService creates an OpenAI-backed embedding service.
func NewService(apiKey, model string) (*Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key not set", domain.ErrInvalidConfig)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Service{
		client: openai.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(3)),
		model:  model,
	}, nil
}

// ModelName returns the embedding model in use.
func (s *Service) ModelName() string {
	return s.model
}

// Close releases resources.
func (s *Service) Close() error {
	return nil
}

// Embed generates the embedding for a single text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for the texts, splitting into API-sized
// batches. The result is index-aligned with the input.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts to embed", domain.ErrInvalidInput)
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := s.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: openai.EmbeddingModel(s.model),
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts[start:end],
			},
		})
		if err != nil {
			return nil, wrapAPIError(err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("%w: got %d embeddings for %d inputs",
				domain.ErrEmbeddingUnavailable, len(resp.Data), end-start)
		}

		for _, data := range resp.Data {
			vector := make([]float32, len(data.Embedding))
			for i, v := range data.Embedding {
				vector[i] = float32(v)
			}
			embeddings = append(embeddings, vector)
		}
	}
	return embeddings, nil
}

func wrapAPIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 500 {
		return fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	return fmt.Errorf("openai embeddings: %w", err)
}
