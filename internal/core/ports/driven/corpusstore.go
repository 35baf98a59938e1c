package driven

import (
	"context"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
)

// CorpusStore persists and loads normalised chunks, independent of the
// vector index. One partition per source document.
//
// Implementations: a local filesystem store (documents.jsonl per partition)
// and an object-storage store which additionally deduplicates by chunk_id on
// write, because object storage lacks cheap partitioned overwrites.
type CorpusStore interface {
	// Save serialises the chunks to the named partition, one JSON record
	// per chunk. Overwrites the partition in place; creates it if absent.
	Save(ctx context.Context, chunks []domain.Chunk, partition string) error

	// Load reads every partition under the store root and returns all
	// chunks found. Order across partitions is not guaranteed but is
	// stable within one partition.
	Load(ctx context.Context) ([]domain.Chunk, error)

	// LoadPartition reads a single named partition.
	LoadPartition(ctx context.Context, partition string) ([]domain.Chunk, error)

	// Partitions lists the partition names present in the store.
	Partitions(ctx context.Context) ([]string, error)
}
