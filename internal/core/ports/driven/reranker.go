package driven

import (
	"context"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
)

// Reranker applies a secondary relevance-scoring pass to a fused candidate
// set. Typically backed by a remote cross-encoder and therefore the most
// latency- and rate-limit-sensitive stage of retrieval: implementations must
// pace calls to respect downstream rate limits.
type Reranker interface {
	// Rerank reorders candidates by direct query-passage relevance and
	// truncates to at most topN results. Returned scores are the
	// reranker's own relevance scores, not the fused retrieval scores.
	Rerank(ctx context.Context, query string, candidates []domain.ScoredChunk, topN int) ([]domain.ScoredChunk, error)

	// Close releases resources.
	Close() error
}
