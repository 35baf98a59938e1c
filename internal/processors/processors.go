// Package processors turns raw loader-emitted elements into corpus chunks.
// One processing function per source type (PDF, web, SQL), all producing
// chunks with the same metadata contract.
//
// Chunk index policy: chunk_index is the element's position in the original
// loader emission order, assigned before category filtering. Indices are
// therefore gapped after drops, but remain stable when an upstream loader's
// category tagging changes between ingestion runs.
package processors

import (
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/greenplate-labs/greenplate/internal/logger"
)

// tokenEncoding is the encoding used for minimum-length accounting.
const tokenEncoding = "cl100k_base"

// Config parameterises a processing run.
type Config struct {
	// PipelineVersion is recorded on every produced chunk.
	PipelineVersion string

	// MinChunkTokens drops chunks shorter than this many tokens after
	// index assignment, so dropped chunks never shift retained indices.
	// Zero disables the filter.
	MinChunkTokens int

	// Now supplies the ingestion timestamp; defaults to time.Now.
	Now func() time.Time
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// ingestedAt formats the ingestion timestamp as UTC ISO-8601.
func (c Config) ingestedAt() string {
	return c.now().UTC().Format(time.RFC3339)
}

// tokenCount counts tokens for the minimum-length filter.
// Falls back to word count if the encoding cannot be loaded.
func tokenCount(text string) int {
	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		logger.Warn("Token encoding unavailable, falling back to rune count: %v", err)
		return len(text)
	}
	return len(enc.Encode(text, nil, nil))
}
