package chromem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenplate-labs/greenplate/internal/adapters/driven/vector/manifest"
	"github.com/greenplate-labs/greenplate/internal/core/domain"
)

// stubEmbedder returns a fixed vector per known text.
type stubEmbedder struct {
	model   string
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := s.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) ModelName() string { return s.model }
func (s *stubEmbedder) Close() error      { return nil }

func testEmbedder() *stubEmbedder {
	return &stubEmbedder{
		model: "stub-embed-v1",
		vectors: map[string][]float32{
			"beef farming emits methane":  {1, 0, 0},
			"rice paddies flood seasonal": {0, 1, 0},
			"lentils are a protein crop":  {0, 0, 1},
		},
	}
}

func chunk(docID string, index int, content string) domain.Chunk {
	return domain.Chunk{
		PageContent: content,
		Metadata: domain.Metadata{
			DocID:   docID,
			ChunkID: fmt.Sprintf("%s::%d", docID, index),
		},
	}
}

func TestCreateAndQuery(t *testing.T) {
	backend := NewBackend(t.TempDir())
	embedder := testEmbedder()

	err := backend.Create(context.Background(), []domain.Chunk{
		chunk("beef.pdf", 0, "beef farming emits methane"),
		chunk("beef.pdf", 1, "rice paddies flood seasonal"),
	}, embedder, "beef", domain.Manifest{SourceFile: "beef.pdf"})
	require.NoError(t, err)

	index, err := backend.Load(context.Background(), "beef", "")
	require.NoError(t, err)
	defer index.Close()

	assert.Equal(t, "stub-embed-v1", index.EmbeddingModel())

	results, err := index.Query(context.Background(), []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "beef farming emits methane", results[0].Chunk.PageContent)
	assert.Equal(t, "beef.pdf::0", results[0].Chunk.Metadata.ChunkID)
	assert.Equal(t, "beef.pdf", results[0].Chunk.Metadata.DocID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}

func TestCreateNoChunks(t *testing.T) {
	backend := NewBackend(t.TempDir())

	err := backend.Create(context.Background(), nil, testEmbedder(), "empty", domain.Manifest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueryClampsToPartitionSize(t *testing.T) {
	backend := NewBackend(t.TempDir())
	embedder := testEmbedder()

	err := backend.Create(context.Background(), []domain.Chunk{
		chunk("beef.pdf", 0, "beef farming emits methane"),
	}, embedder, "beef", domain.Manifest{})
	require.NoError(t, err)

	index, err := backend.Load(context.Background(), "beef", "")
	require.NoError(t, err)

	results, err := index.Query(context.Background(), []float32{1, 0, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestLoadManifestPinsModel(t *testing.T) {
	backend := NewBackend(t.TempDir())
	embedder := testEmbedder()

	err := backend.Create(context.Background(), []domain.Chunk{
		chunk("beef.pdf", 0, "beef farming emits methane"),
	}, embedder, "beef", domain.Manifest{})
	require.NoError(t, err)

	// Override disagrees with the manifest; the manifest wins.
	index, err := backend.Load(context.Background(), "beef", "some-other-model")
	require.NoError(t, err)
	assert.Equal(t, "stub-embed-v1", index.EmbeddingModel())
}

func TestLoadMissingManifest(t *testing.T) {
	root := t.TempDir()
	backend := NewBackend(root)
	embedder := testEmbedder()

	err := backend.Create(context.Background(), []domain.Chunk{
		chunk("beef.pdf", 0, "beef farming emits methane"),
	}, embedder, "beef", domain.Manifest{})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(root, "beef", domain.ManifestFilename)))

	// No manifest and no override is fatal.
	_, err = backend.Load(context.Background(), "beef", "")
	assert.ErrorIs(t, err, domain.ErrMissingManifest)

	// The override applies only in this degraded case.
	index, err := backend.Load(context.Background(), "beef", "fallback-model")
	require.NoError(t, err)
	assert.Equal(t, "fallback-model", index.EmbeddingModel())
}

func TestMergeDisjointPartitions(t *testing.T) {
	backend := NewBackend(t.TempDir())
	embedder := testEmbedder()
	ctx := context.Background()

	err := backend.Create(ctx, []domain.Chunk{
		chunk("beef.pdf", 0, "beef farming emits methane"),
	}, embedder, "beef", domain.Manifest{SourceFile: "beef.pdf"})
	require.NoError(t, err)

	err = backend.Create(ctx, []domain.Chunk{
		chunk("https://example.org/rice", 0, "rice paddies flood seasonal"),
	}, embedder, "rice", domain.Manifest{SourceURL: "https://example.org/rice"})
	require.NoError(t, err)

	require.NoError(t, backend.Merge(ctx, []string{"beef", "rice"}, "merged"))

	index, err := backend.Load(ctx, "merged", "")
	require.NoError(t, err)
	assert.Equal(t, "stub-embed-v1", index.EmbeddingModel())

	results, err := index.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	ids := []string{results[0].Chunk.Metadata.ChunkID, results[1].Chunk.Metadata.ChunkID}
	assert.ElementsMatch(t, []string{"beef.pdf::0", "https://example.org/rice::0"}, ids)
	assert.Equal(t, "beef.pdf::0", ids[0], "nearest chunk ranks first")
}

func TestMergeRecordsSourceNames(t *testing.T) {
	root := t.TempDir()
	backend := NewBackend(root)
	embedder := testEmbedder()
	ctx := context.Background()

	err := backend.Create(ctx, []domain.Chunk{
		chunk("beef.pdf", 0, "beef farming emits methane"),
	}, embedder, "beef", domain.Manifest{SourceFile: "beef.pdf"})
	require.NoError(t, err)

	err = backend.Create(ctx, []domain.Chunk{
		chunk("https://example.org/rice", 0, "rice paddies flood seasonal"),
	}, embedder, "rice", domain.Manifest{SourceURL: "https://example.org/rice"})
	require.NoError(t, err)

	require.NoError(t, backend.Merge(ctx, []string{"beef", "rice"}, "merged"))

	m, err := manifest.Read(filepath.Join(root, "merged"))
	require.NoError(t, err)
	assert.Equal(t, "chromem", m.VectorStoreType)
	assert.Equal(t, "stub-embed-v1", m.EmbeddingModel)
	assert.Equal(t, []string{"beef.pdf", "https://example.org/rice"}, m.SourceFiles)
}

func TestMergeDuplicateChunkID(t *testing.T) {
	backend := NewBackend(t.TempDir())
	embedder := testEmbedder()
	ctx := context.Background()

	err := backend.Create(ctx, []domain.Chunk{
		chunk("beef.pdf", 0, "beef farming emits methane"),
	}, embedder, "first", domain.Manifest{SourceFile: "beef.pdf"})
	require.NoError(t, err)

	err = backend.Create(ctx, []domain.Chunk{
		chunk("beef.pdf", 0, "rice paddies flood seasonal"),
	}, embedder, "second", domain.Manifest{SourceFile: "beef.pdf"})
	require.NoError(t, err)

	err = backend.Merge(ctx, []string{"first", "second"}, "merged")
	assert.ErrorIs(t, err, domain.ErrDuplicateChunk)
	assert.ErrorContains(t, err, "beef.pdf::0")
}

func TestMergeModelMismatch(t *testing.T) {
	backend := NewBackend(t.TempDir())
	ctx := context.Background()

	first := testEmbedder()
	second := testEmbedder()
	second.model = "stub-embed-v2"

	err := backend.Create(ctx, []domain.Chunk{
		chunk("beef.pdf", 0, "beef farming emits methane"),
	}, first, "beef", domain.Manifest{})
	require.NoError(t, err)

	err = backend.Create(ctx, []domain.Chunk{
		chunk("rice.pdf", 0, "rice paddies flood seasonal"),
	}, second, "rice", domain.Manifest{})
	require.NoError(t, err)

	err = backend.Merge(ctx, []string{"beef", "rice"}, "merged")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestMergeNoSources(t *testing.T) {
	backend := NewBackend(t.TempDir())

	err := backend.Merge(context.Background(), nil, "merged")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
