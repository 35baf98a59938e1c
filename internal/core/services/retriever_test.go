package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
)

type mockVectorIndex struct {
	results []domain.ScoredChunk
	err     error
	gotK    int
}

func (m *mockVectorIndex) Query(_ context.Context, _ []float32, k int) ([]domain.ScoredChunk, error) {
	m.gotK = k
	return m.results, m.err
}

func (m *mockVectorIndex) EmbeddingModel() string { return "test-embedding" }
func (m *mockVectorIndex) Close() error           { return nil }

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []float32{0.1, 0.2}, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (m *mockEmbedder) ModelName() string { return "test-embedding" }
func (m *mockEmbedder) Close() error      { return nil }

type mockSparse struct {
	results []domain.ScoredChunk
	err     error
}

func (m *mockSparse) Query(_ context.Context, _ string, _ int) ([]domain.ScoredChunk, error) {
	return m.results, m.err
}

func (m *mockSparse) Len() int { return len(m.results) }

type mockReranker struct {
	results []domain.ScoredChunk
	err     error
}

func (m *mockReranker) Rerank(_ context.Context, _ string, candidates []domain.ScoredChunk, topN int) ([]domain.ScoredChunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.results != nil {
		return m.results, nil
	}
	if topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates, nil
}

func (m *mockReranker) Close() error { return nil }

func scoredChunk(id string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			PageContent: "content of " + id,
			Metadata:    domain.Metadata{ChunkID: id},
		},
		Score: score,
	}
}

func chunkIDs(chunks []domain.Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.Metadata.ChunkID
	}
	return ids
}

func retrieverConfig(dense *mockVectorIndex, sparse *mockSparse) HybridRetrieverConfig {
	return HybridRetrieverConfig{
		Dense:        dense,
		Embedder:     &mockEmbedder{},
		Sparse:       sparse,
		DenseWeight:  0.5,
		SparseWeight: 0.5,
		DenseK:       10,
		SparseK:      10,
	}
}

func TestNewHybridRetrieverValidation(t *testing.T) {
	valid := retrieverConfig(&mockVectorIndex{}, &mockSparse{})

	_, err := NewHybridRetriever(valid)
	require.NoError(t, err)

	missing := valid
	missing.Dense = nil
	_, err = NewHybridRetriever(missing)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	badWeights := valid
	badWeights.DenseWeight = 0.7
	badWeights.SparseWeight = 0.7
	_, err = NewHybridRetriever(badWeights)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	badK := valid
	badK.DenseK = 0
	_, err = NewHybridRetriever(badK)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestRetrieveFusesWeightedScores(t *testing.T) {
	// Dense finds A (0.9) and B (0.5); sparse finds B (0.8) and C (0.6).
	// With equal weights the fused scores are B 0.65, A 0.45, C 0.30.
	dense := &mockVectorIndex{results: []domain.ScoredChunk{
		scoredChunk("A", 0.9),
		scoredChunk("B", 0.5),
	}}
	sparse := &mockSparse{results: []domain.ScoredChunk{
		scoredChunk("B", 0.8),
		scoredChunk("C", 0.6),
	}}

	r, err := NewHybridRetriever(retrieverConfig(dense, sparse))
	require.NoError(t, err)

	chunks, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, chunkIDs(chunks))
}

func TestRetrieveTieBreaksByDenseRank(t *testing.T) {
	// A and B fuse to the same score; A holds the better dense rank.
	dense := &mockVectorIndex{results: []domain.ScoredChunk{
		scoredChunk("A", 0.8),
		scoredChunk("B", 0.4),
	}}
	sparse := &mockSparse{results: []domain.ScoredChunk{
		scoredChunk("B", 0.4),
	}}

	r, err := NewHybridRetriever(retrieverConfig(dense, sparse))
	require.NoError(t, err)

	chunks, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, chunkIDs(chunks))
}

func TestRetrieveDenseFailureDegradesToSparse(t *testing.T) {
	dense := &mockVectorIndex{err: errors.New("store offline")}
	sparse := &mockSparse{results: []domain.ScoredChunk{
		scoredChunk("C", 0.6),
		scoredChunk("B", 0.4),
	}}

	r, err := NewHybridRetriever(retrieverConfig(dense, sparse))
	require.NoError(t, err)

	chunks, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B"}, chunkIDs(chunks))
}

func TestRetrieveEmbeddingFailureDegradesToSparse(t *testing.T) {
	cfg := retrieverConfig(&mockVectorIndex{}, &mockSparse{results: []domain.ScoredChunk{
		scoredChunk("B", 0.4),
	}})
	cfg.Embedder = &mockEmbedder{err: errors.New("embedding api down")}

	r, err := NewHybridRetriever(cfg)
	require.NoError(t, err)

	chunks, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, chunkIDs(chunks))
}

func TestRetrieveSparseFailureDegradesToDense(t *testing.T) {
	dense := &mockVectorIndex{results: []domain.ScoredChunk{
		scoredChunk("A", 0.9),
	}}
	sparse := &mockSparse{err: errors.New("index corrupt")}

	r, err := NewHybridRetriever(retrieverConfig(dense, sparse))
	require.NoError(t, err)

	chunks, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, chunkIDs(chunks))
}

func TestRetrieveBothLegsFailing(t *testing.T) {
	dense := &mockVectorIndex{err: errors.New("store offline")}
	sparse := &mockSparse{err: errors.New("index corrupt")}

	r, err := NewHybridRetriever(retrieverConfig(dense, sparse))
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "question")
	assert.Error(t, err)
}

func TestRetrieveRerankerReorders(t *testing.T) {
	dense := &mockVectorIndex{results: []domain.ScoredChunk{
		scoredChunk("A", 0.9),
		scoredChunk("B", 0.5),
	}}
	sparse := &mockSparse{}

	cfg := retrieverConfig(dense, sparse)
	cfg.Reranker = &mockReranker{results: []domain.ScoredChunk{
		scoredChunk("B", 0.99),
		scoredChunk("A", 0.1),
	}}
	cfg.RerankTopN = 2

	r, err := NewHybridRetriever(cfg)
	require.NoError(t, err)

	chunks, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, chunkIDs(chunks))
}

func TestRetrieveRerankerFailureFallsBackToFusedOrder(t *testing.T) {
	dense := &mockVectorIndex{results: []domain.ScoredChunk{
		scoredChunk("A", 0.9),
		scoredChunk("B", 0.5),
	}}
	sparse := &mockSparse{}

	cfg := retrieverConfig(dense, sparse)
	cfg.Reranker = &mockReranker{err: errors.New("rate limited")}

	r, err := NewHybridRetriever(cfg)
	require.NoError(t, err)

	chunks, err := r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, chunkIDs(chunks))
}

func TestRetrievePassesConfiguredK(t *testing.T) {
	dense := &mockVectorIndex{}
	cfg := retrieverConfig(dense, &mockSparse{})
	cfg.DenseK = 7

	r, err := NewHybridRetriever(cfg)
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, 7, dense.gotK)
}
