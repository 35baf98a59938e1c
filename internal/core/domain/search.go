package domain

// ScoredChunk is a chunk paired with a backend-native relevance score.
// Fusion combines the raw native scores as a weighted sum; ties are broken
// by rank, so the scales never need reconciling.
type ScoredChunk struct {
	// Chunk is the retrieved passage.
	Chunk Chunk

	// Score is the backend-native relevance score (cosine similarity for
	// dense backends, BM25 for sparse).
	Score float64
}

// ChunkID is a convenience accessor for the chunk's identifier.
func (s ScoredChunk) ChunkID() string {
	return s.Chunk.Metadata.ChunkID
}
