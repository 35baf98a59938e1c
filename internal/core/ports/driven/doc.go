// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Loader / RowLoader: Extract raw elements or rows from a source
//   - CorpusStore: Chunk persistence, one partition per source
//   - VectorBackend / VectorIndex: Dense index build, load, merge and query
//   - SparseIndex: Keyword (BM25) search over the corpus
//   - EmbeddingService: Query and chunk embedding
//   - LLMService: Query analysis and answer generation
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Reranker: Secondary relevance pass. Without it, fused order serves.
//   - TokenVerifier: Bearer-token auth. Without it, the dev principal is
//     granted; never run that in production.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or processor package
package driven
