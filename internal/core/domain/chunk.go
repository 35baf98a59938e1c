package domain

import "fmt"

// DefaultTenantID is assigned to chunks ingested without an explicit tenant.
const DefaultTenantID = "default"

// Chunk is the atomic retrievable unit of the corpus: one passage of text
// plus the metadata needed to trace it back to its source document.
type Chunk struct {
	// PageContent is the normalised passage text.
	PageContent string `json:"page_content"`

	// Metadata carries source identity and ingestion provenance.
	Metadata Metadata `json:"metadata"`
}

// Metadata is the explicit chunk metadata schema.
// Every field has a documented default; absence is never implicit.
type Metadata struct {
	// DocID is the stable source-derived document identifier:
	// file name (PDF), normalised URL (web), or "db:{source}" (SQL).
	DocID string `json:"doc_id"`

	// ChunkID uniquely identifies the chunk within a corpus.
	// Format: "{doc_id}::{chunk_index}", or "{doc_id}::chunk-{chunk_index}"
	// for database rows.
	ChunkID string `json:"chunk_id"`

	// ChunkIndex is the zero-based position within the source document,
	// assigned over the retained element sequence at ingestion time.
	ChunkIndex int `json:"chunk_index"`

	// DocTitle is the human-readable document title (file stem, page title
	// or table name).
	DocTitle string `json:"doc_title"`

	// Source is the original location: file path, URL or database tag.
	Source string `json:"source"`

	// FileType is the source media type (e.g. "application/pdf").
	FileType string `json:"filetype,omitempty"`

	// Languages lists detected content languages.
	Languages []string `json:"languages,omitempty"`

	// LastModified is the source's last-modified timestamp, when known.
	LastModified string `json:"last_modified,omitempty"`

	// Filename is the base name of the source file (PDF only).
	Filename string `json:"filename,omitempty"`

	// PageNumber is the page the chunk was extracted from (PDF only).
	PageNumber int `json:"page_number,omitempty"`

	// URL is the source URL (web only).
	URL string `json:"url,omitempty"`

	// Tags is reserved for future classification. Defaults to empty,
	// never nil after processing.
	Tags []string `json:"tags"`

	// IngestedAt is the UTC ISO-8601 ingestion timestamp.
	IngestedAt string `json:"ingested_at"`

	// TenantID scopes the chunk to a tenant. Defaults to "default".
	TenantID string `json:"tenant_id"`

	// PipelineVersion records the ingestion code version that produced the
	// chunk. Never retroactively rewritten.
	PipelineVersion string `json:"pipeline_version"`
}

// ChunkID formats a chunk identifier for file and web sources.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s::%d", docID, index)
}

// RowChunkID formats a chunk identifier for database rows.
func RowChunkID(docID string, index int) string {
	return fmt.Sprintf("%s::chunk-%d", docID, index)
}
