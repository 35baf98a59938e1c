// Package bm25 provides an in-memory BM25 index over the chunk corpus. The
// index is rebuilt from the corpus store at startup; scoring uses the
// standard Okapi parameters.
package bm25

import (
	"context"
	"math"
	"sort"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
	"github.com/greenplate-labs/greenplate/internal/normaliser"
)

const (
	k1 = 1.5
	b  = 0.75
)

// Ensure Index implements the interface.
var _ driven.SparseIndex = (*Index)(nil)

// Index is an immutable BM25 index built over a chunk corpus.
type Index struct {
	chunks    []domain.Chunk
	docLens   []int
	avgDocLen float64
	// postings maps a term to the per-document frequency of that term.
	postings map[string]map[int]int
}

// NewIndex tokenizes every chunk and builds the posting lists.
func NewIndex(chunks []domain.Chunk) *Index {
	idx := &Index{
		chunks:   chunks,
		docLens:  make([]int, len(chunks)),
		postings: make(map[string]map[int]int),
	}

	total := 0
	for i, chunk := range chunks {
		tokens := normaliser.Tokenize(chunk.PageContent)
		idx.docLens[i] = len(tokens)
		total += len(tokens)
		for _, tok := range tokens {
			posting, ok := idx.postings[tok]
			if !ok {
				posting = make(map[int]int)
				idx.postings[tok] = posting
			}
			posting[i]++
		}
	}
	if len(chunks) > 0 {
		idx.avgDocLen = float64(total) / float64(len(chunks))
	}
	return idx
}

// Len reports the number of indexed chunks.
func (idx *Index) Len() int {
	return len(idx.chunks)
}

// Query scores every document containing at least one query term and returns
// the top k by BM25 score. Ties break by chunk_id for determinism.
func (idx *Index) Query(_ context.Context, question string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 || len(idx.chunks) == 0 {
		return nil, nil
	}

	terms := normaliser.Tokenize(question)
	scores := make(map[int]float64)
	n := float64(len(idx.chunks))

	for _, term := range terms {
		posting, ok := idx.postings[term]
		if !ok {
			continue
		}
		// BM25+ style idf floor keeps very common terms from going negative.
		idf := math.Log(1 + (n-float64(len(posting))+0.5)/(float64(len(posting))+0.5))
		for doc, tf := range posting {
			norm := 1 - b + b*float64(idx.docLens[doc])/idx.avgDocLen
			scores[doc] += idf * float64(tf) * (k1 + 1) / (float64(tf) + k1*norm)
		}
	}

	scored := make([]domain.ScoredChunk, 0, len(scores))
	for doc, score := range scores {
		scored = append(scored, domain.ScoredChunk{Chunk: idx.chunks[doc], Score: score})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ChunkID() < scored[j].ChunkID()
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
