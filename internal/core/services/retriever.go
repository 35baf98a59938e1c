package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driving"
	"github.com/greenplate-labs/greenplate/internal/logger"
)

// Ensure HybridRetriever implements the interface.
var _ driving.Retriever = (*HybridRetriever)(nil)

// HybridRetrieverConfig wires a hybrid retriever.
type HybridRetrieverConfig struct {
	// Dense is the loaded vector index partition.
	Dense driven.VectorIndex

	// Embedder embeds the query with the index's pinned model.
	Embedder driven.EmbeddingService

	// Sparse is the in-memory keyword index.
	Sparse driven.SparseIndex

	// Reranker is optional; nil disables reranking.
	Reranker driven.Reranker

	// DenseWeight and SparseWeight scale each leg's native scores during
	// fusion. They must sum to 1.
	DenseWeight  float64
	SparseWeight float64

	// DenseK and SparseK are the per-leg candidate counts.
	DenseK  int
	SparseK int

	// RerankTopN bounds the reranked result. Zero keeps every candidate.
	RerankTopN int
}

// HybridRetriever runs dense and sparse retrieval in parallel and fuses the
// two rankings by weighted score.
type HybridRetriever struct {
	cfg HybridRetrieverConfig
}

// NewHybridRetriever validates the config and creates the retriever.
func NewHybridRetriever(cfg HybridRetrieverConfig) (*HybridRetriever, error) {
	if cfg.Dense == nil || cfg.Embedder == nil || cfg.Sparse == nil {
		return nil, fmt.Errorf("%w: dense index, embedder and sparse index are required", domain.ErrInvalidConfig)
	}
	if sum := cfg.DenseWeight + cfg.SparseWeight; sum < 0.999 || sum > 1.001 {
		return nil, fmt.Errorf("%w: retrieval weights must sum to 1, got %v", domain.ErrInvalidConfig, sum)
	}
	if cfg.DenseK <= 0 || cfg.SparseK <= 0 {
		return nil, fmt.Errorf("%w: retrieval k must be positive", domain.ErrInvalidConfig)
	}
	return &HybridRetriever{cfg: cfg}, nil
}

// candidate accumulates one chunk's fused score and per-leg ranks.
type candidate struct {
	chunk      domain.Chunk
	score      float64
	denseRank  int
	sparseRank int
}

const unranked = 1 << 30

// Retrieve runs both legs concurrently. A single failing leg degrades to
// the surviving one with a warning; both legs failing is an error.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string) ([]domain.Chunk, error) {
	var (
		wg        sync.WaitGroup
		dense     []domain.ScoredChunk
		sparse    []domain.ScoredChunk
		denseErr  error
		sparseErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		embedding, err := r.cfg.Embedder.Embed(ctx, query)
		if err != nil {
			denseErr = fmt.Errorf("embed query: %w", err)
			return
		}
		dense, denseErr = r.cfg.Dense.Query(ctx, embedding, r.cfg.DenseK)
	}()
	go func() {
		defer wg.Done()
		sparse, sparseErr = r.cfg.Sparse.Query(ctx, query, r.cfg.SparseK)
	}()
	wg.Wait()

	if denseErr != nil && sparseErr != nil {
		return nil, fmt.Errorf("retrieval failed: dense: %v; sparse: %v", denseErr, sparseErr)
	}
	if denseErr != nil {
		logger.Warn("Dense retrieval failed, serving sparse results only: %v", denseErr)
	}
	if sparseErr != nil {
		logger.Warn("Sparse retrieval failed, serving dense results only: %v", sparseErr)
	}

	fused := r.fuse(dense, sparse)

	if r.cfg.Reranker != nil && len(fused) > 0 {
		scored := make([]domain.ScoredChunk, len(fused))
		for i, chunk := range fused {
			scored[i] = domain.ScoredChunk{Chunk: chunk}
		}
		reranked, err := r.cfg.Reranker.Rerank(ctx, query, scored, r.cfg.RerankTopN)
		if err != nil {
			logger.Warn("Reranking failed, serving fused order: %v", err)
			return fused, nil
		}
		chunks := make([]domain.Chunk, len(reranked))
		for i := range reranked {
			chunks[i] = reranked[i].Chunk
		}
		return chunks, nil
	}
	return fused, nil
}

// fuse merges the two rankings by weighted sum of native scores. A chunk
// found by both legs gets both contributions; ties break by dense rank,
// then sparse rank, then chunk_id.
func (r *HybridRetriever) fuse(dense, sparse []domain.ScoredChunk) []domain.Chunk {
	merged := make(map[string]*candidate)
	order := make([]string, 0, len(dense)+len(sparse))

	for rank, sc := range dense {
		id := sc.ChunkID()
		merged[id] = &candidate{
			chunk:      sc.Chunk,
			score:      r.cfg.DenseWeight * sc.Score,
			denseRank:  rank,
			sparseRank: unranked,
		}
		order = append(order, id)
	}
	for rank, sc := range sparse {
		id := sc.ChunkID()
		if existing, ok := merged[id]; ok {
			existing.score += r.cfg.SparseWeight * sc.Score
			existing.sparseRank = rank
			continue
		}
		merged[id] = &candidate{
			chunk:      sc.Chunk,
			score:      r.cfg.SparseWeight * sc.Score,
			denseRank:  unranked,
			sparseRank: rank,
		}
		order = append(order, id)
	}

	candidates := make([]*candidate, 0, len(order))
	for _, id := range order {
		candidates = append(candidates, merged[id])
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.denseRank != b.denseRank {
			return a.denseRank < b.denseRank
		}
		if a.sparseRank != b.sparseRank {
			return a.sparseRank < b.sparseRank
		}
		return a.chunk.Metadata.ChunkID < b.chunk.Metadata.ChunkID
	})

	chunks := make([]domain.Chunk, len(candidates))
	for i, c := range candidates {
		chunks[i] = c.chunk
	}
	return chunks
}
