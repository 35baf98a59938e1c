// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
)

// LLMService provides language model operations for the pipeline stages.
// Each stage receives its own instance, configured from its own preset.
type LLMService interface {
	// Generate produces a text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ExtractQuery invokes the model in structured-output mode to extract
	// a search query from the input text.
	ExtractQuery(ctx context.Context, input string) (domain.StructuredQuery, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}
