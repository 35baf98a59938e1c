// Package openai implements the language model port against the OpenAI
// chat completions API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
)

const requestTimeout = 60 * time.Second

// Ensure Service implements the interface.
var _ driven.LLMService = (*Service)(nil)

// Service calls the OpenAI chat completions API.
type Service struct {
	client openai.Client
	model  string
}

// NewService creates an OpenAI-backed language model service. Extra request
// options are appended after the defaults, mainly for tests.
func NewService(apiKey, model string, opts ...option.RequestOption) (*Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key not set", domain.ErrInvalidConfig)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: model name not set", domain.ErrInvalidConfig)
	}
	// Completions are not idempotent; a failed call surfaces to the caller
	// instead of being retried against the same prompt.
	options := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &Service{
		client: openai.NewClient(options...),
		model:  model,
	}, nil
}

// ModelName returns the configured chat model.
func (s *Service) ModelName() string {
	return s.model
}

// Close releases resources.
func (s *Service) Close() error {
	return nil
}

// Generate produces a free-text completion for the prompt.
func (s *Service) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	params.Temperature = openai.Float(opts.Temperature)
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	completion, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapAPIError(err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", domain.ErrLLMUnavailable)
	}
	return completion.Choices[0].Message.Content, nil
}

// queryExtractionSchema constrains the model to a single rewritten search
// query.
var queryExtractionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"query": map[string]any{
			"type":        "string",
			"description": "The search query distilled from the user question",
		},
	},
	"required":             []string{"query"},
	"additionalProperties": false,
}

// ExtractQuery runs the prompt with a structured-output schema and decodes
// the rewritten search query.
func (s *Service) ExtractQuery(ctx context.Context, prompt string) (domain.StructuredQuery, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "search_query",
					Schema: queryExtractionSchema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	completion, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return domain.StructuredQuery{}, wrapAPIError(err)
	}
	if len(completion.Choices) == 0 {
		return domain.StructuredQuery{}, fmt.Errorf("%w: no completion choices returned", domain.ErrLLMUnavailable)
	}

	var query domain.StructuredQuery
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &query); err != nil {
		return domain.StructuredQuery{}, fmt.Errorf("decode structured query: %w", err)
	}
	if query.Query == "" {
		return domain.StructuredQuery{}, fmt.Errorf("%w: model returned an empty query", domain.ErrLLMUnavailable)
	}
	return query, nil
}

func wrapAPIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 500 {
		return fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	}
	return fmt.Errorf("openai chat completion: %w", err)
}
