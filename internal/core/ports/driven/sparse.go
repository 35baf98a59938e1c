package driven

import (
	"context"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
)

// SparseIndex provides lexical term-frequency search over the corpus.
// Built once per serving process from the CorpusStore using normaliser
// tokens; not persisted. Rebuilding is O(corpus size), acceptable because
// corpora are curated and bounded.
type SparseIndex interface {
	// Query ranks corpus chunks against the question text and returns the
	// top k with backend-native scores (e.g. BM25).
	Query(ctx context.Context, question string, k int) ([]domain.ScoredChunk, error)

	// Len returns the number of indexed chunks.
	Len() int
}
