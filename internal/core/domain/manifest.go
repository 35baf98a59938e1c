package domain

// Manifest pins a vector index partition to the exact embedding model and
// source metadata used to build it. It is the single source of truth for
// which embedding model must be used to query that partition; the live
// configuration is never consulted, to avoid embedding/index skew.
type Manifest struct {
	// VectorStoreType names the index backend ("chromem", "pgvector").
	VectorStoreType string `json:"vector_store"`

	// EmbeddingModel is the model every vector in the partition was
	// produced with.
	EmbeddingModel string `json:"embedding_model"`

	// LoaderName identifies the loader that emitted the source elements.
	LoaderName string `json:"loader_name,omitempty"`

	// LoaderParams are the loader parameters used at ingestion time.
	LoaderParams map[string]any `json:"loader_params,omitempty"`

	// SourceFile is the source identity for file-backed partitions.
	SourceFile string `json:"source_file,omitempty"`

	// SourceURL is the source identity for web partitions.
	SourceURL string `json:"source_url,omitempty"`

	// SourceFiles lists constituent sources for a merged partition.
	SourceFiles []string `json:"source_files,omitempty"`

	// LastIndexed is the UTC ISO-8601 timestamp of the last (re)build.
	LastIndexed string `json:"last_indexed"`
}

// ManifestFilename is the manifest's on-disk name within a partition.
const ManifestFilename = "manifest.json"
