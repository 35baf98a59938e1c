package driven

import (
	"context"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
)

// VectorBackend builds, loads and merges dense vector index partitions.
// Implementations: a local file-backed approximate index (chromem) and a
// managed Postgres index (pgvector). The backend is resolved once at
// configuration-load time; unknown type strings are rejected there.
type VectorBackend interface {
	// Create embeds every chunk's page content, builds the named index
	// partition and persists it together with a Manifest recording the
	// exact embedding model used. The seed supplies the manifest's
	// provenance fields (loader name, params and source identity); the
	// backend fills in type, model and build time.
	Create(ctx context.Context, chunks []domain.Chunk, embedder EmbeddingService, destination string, seed domain.Manifest) error

	// Load opens the named partition. When a manifest is present the
	// embedding model is read from it and modelOverride is ignored; only
	// when the manifest is missing may the override be used, in degraded
	// mode with a warning. With no manifest and no override, Load fails
	// with domain.ErrMissingManifest.
	Load(ctx context.Context, source string, modelOverride string) (VectorIndex, error)

	// Merge combines the partitions under sources into a single partition
	// at destination. Every chunk_id is preserved; a chunk_id appearing in
	// more than one partition fails with domain.ErrDuplicateChunk.
	Merge(ctx context.Context, sources []string, destination string) error

	// Type returns the backend type string ("chromem", "pgvector").
	Type() string
}

// VectorIndex is a loaded, queryable index partition.
// Read-only during serving; shared across concurrent requests.
type VectorIndex interface {
	// Query finds the k nearest chunks to the embedded question.
	// Results are ranked by the backend's similarity metric, which matches
	// the metric the index was built with.
	Query(ctx context.Context, embedding []float32, k int) ([]domain.ScoredChunk, error)

	// EmbeddingModel returns the model the partition was built with,
	// as pinned by its manifest.
	EmbeddingModel() string

	// Close releases resources.
	Close() error
}
