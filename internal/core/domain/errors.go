package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown backend, sparse or reranker type.
	// Raised at construction time, never at first query.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidConfig indicates a missing or inconsistent configuration key.
	// Fatal at load time; never silently defaulted.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingManifest indicates a vector index partition has no manifest.
	// Loading may proceed in degraded mode only with an explicit embedding
	// model override.
	ErrMissingManifest = errors.New("missing manifest")

	// ErrDuplicateChunk indicates the same chunk_id appears in more than one
	// index partition. A data-integrity fault, never silently resolved.
	ErrDuplicateChunk = errors.New("duplicate chunk id")

	// ErrMissingColumn indicates a required column is absent from a SQL
	// source. The row template cannot be filled, so that table's ingestion
	// aborts.
	ErrMissingColumn = errors.New("missing required column")

	// Authentication and authorisation errors.

	// ErrAuthRequired indicates no bearer token was supplied.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the access token failed verification
	// (signature, issuer, audience, expiry or token_use).
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrForbidden indicates a valid principal lacks a required group.
	ErrForbidden = errors.New("forbidden")

	// Service availability errors.

	// ErrLLMUnavailable indicates the LLM service is not configured or
	// unreachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Dense retrieval is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
