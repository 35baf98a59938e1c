// Package domain defines the core business entities for greenplate.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A retrievable passage with its metadata contract
//   - Element: A raw loader-emitted unit, before processing
//   - Manifest: The embedding-model pin of a vector index partition
//   - RagState: The immutable per-request pipeline state
//   - Principal: The authenticated caller
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
