package fs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
)

func testChunk(docID string, index int) domain.Chunk {
	return domain.Chunk{
		PageContent: "passage text",
		Metadata: domain.Metadata{
			DocID:      docID,
			ChunkID:    domain.ChunkID(docID, index),
			ChunkIndex: index,
			Tags:       []string{},
			TenantID:   domain.DefaultTenantID,
		},
	}
}

func TestSaveLoadPartitionRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	chunks := []domain.Chunk{testChunk("report.pdf", 0), testChunk("report.pdf", 1)}
	require.NoError(t, store.Save(ctx, chunks, "report"))

	got, err := store.LoadPartition(ctx, "report")
	require.NoError(t, err)
	assert.Equal(t, chunks, got)
}

func TestSaveOverwritesPartition(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []domain.Chunk{testChunk("a.pdf", 0), testChunk("a.pdf", 1)}, "a"))
	require.NoError(t, store.Save(ctx, []domain.Chunk{testChunk("a.pdf", 0)}, "a"))

	got, err := store.LoadPartition(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestLoadPartitionMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.LoadPartition(context.Background(), "absent")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPartitionsSorted(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []domain.Chunk{testChunk("b.pdf", 0)}, "beta"))
	require.NoError(t, store.Save(ctx, []domain.Chunk{testChunk("a.pdf", 0)}, "alpha"))

	names, err := store.Partitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)
}

func TestPartitionsMissingRoot(t *testing.T) {
	store := NewStore(t.TempDir() + "/nope")

	names, err := store.Partitions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLoadConcatenatesPartitions(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []domain.Chunk{testChunk("b.pdf", 0)}, "beta"))
	require.NoError(t, store.Save(ctx, []domain.Chunk{testChunk("a.pdf", 0), testChunk("a.pdf", 1)}, "alpha"))

	all, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Partitions load in sorted order.
	assert.Equal(t, "a.pdf::0", all[0].Metadata.ChunkID)
	assert.Equal(t, "b.pdf::0", all[2].Metadata.ChunkID)
}
