// Package driving provides interfaces for inbound adapters (primary ports).
package driving

import (
	"context"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
)

// AskService runs the serving pipeline for one question.
// Construction happens once at startup; Ask is safe for concurrent use.
type AskService interface {
	// Ask runs analyze-query, retrieve and generate for the question and
	// returns the final pipeline state.
	Ask(ctx context.Context, question string) (domain.RagState, error)
}

// Retriever turns a query into ranked, deduplicated supporting passages.
type Retriever interface {
	// Retrieve returns contexts ordered by fused relevance, highest first.
	Retrieve(ctx context.Context, query string) ([]domain.Chunk, error)
}
