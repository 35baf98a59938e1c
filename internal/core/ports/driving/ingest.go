package driving

import "context"

// IngestService runs the offline ingestion path for one source.
// Ingestion is the exclusive writer of the corpus and index partitions;
// it never runs concurrently with itself.
type IngestService interface {
	// IngestPDF processes one PDF file into a corpus partition and a
	// vector index partition.
	IngestPDF(ctx context.Context, filePath string) error

	// IngestWeb processes one web page into a corpus partition and a
	// vector index partition.
	IngestWeb(ctx context.Context, url string) error

	// IngestSQL processes one SQL table into a corpus partition and a
	// vector index partition.
	IngestSQL(ctx context.Context, dbPath string) error

	// MergeIndex combines all per-source index partitions into the single
	// serving index.
	MergeIndex(ctx context.Context) error
}
